// Package fetch downloads user-supplied attachments.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strconv"
	"time"

	"github.com/keshon/tagwarden/pkg/retrylimit"
	"golang.org/x/net/proxy"
)

var (
	// ErrNotImage is returned when the URL does not serve a supported image.
	ErrNotImage = errors.New("not an image")
	// ErrTooLarge is returned when the body exceeds the configured limit.
	ErrTooLarge = errors.New("attachment too large")
)

// ImageTypes are the content types accepted as images.
var ImageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 8 << 20
)

// Image is a downloaded image.
type Image struct {
	Data        []byte
	ContentType string
}

// Extension is the file extension matching the content type.
func (i *Image) Extension() string {
	switch i.ContentType {
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	}
	return "png"
}

// Options configures a Fetcher.
type Options struct {
	// Proxy is an optional proxy URL (http, https, socks5 or socks5h).
	Proxy    string
	Timeout  time.Duration
	MaxBytes int64
	Retry    retrylimit.Config
	Logger   *slog.Logger
}

// Fetcher validates a URL with HEAD and downloads it with GET.
type Fetcher struct {
	client   *http.Client
	limiter  *retrylimit.AdaptiveLimiter
	retry    retrylimit.Config
	maxBytes int64
	log      *slog.Logger
}

// New builds a Fetcher from opts.
func New(opts Options) (*Fetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retrylimit.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger.With("component", "fetch")
	opts.Retry.Logger = log

	client, err := NewHTTPClient(opts.Proxy, opts.Timeout)
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		client:   client,
		limiter:  retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:    opts.Retry,
		maxBytes: opts.MaxBytes,
		log:      log,
	}, nil
}

// NewHTTPClient returns a client that dials through proxyStr when set.
func NewHTTPClient(proxyStr string, timeout time.Duration) (*http.Client, error) {
	if proxyStr == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	switch proxyURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// Image checks rawURL with HEAD and downloads it when it serves a
// supported image type.
func (f *Fetcher) Image(ctx context.Context, rawURL string) (*Image, error) {
	var contentType string
	err := retrylimit.Do(ctx, f.limiter, f.retry, func(ctx context.Context) error {
		resp, err := f.do(ctx, http.MethodHead, rawURL)
		if err != nil {
			return err
		}
		resp.Body.Close()
		contentType, err = imageType(resp)
		return err
	})
	if err != nil {
		return nil, notImageOnStatus(err)
	}

	var data []byte
	err = retrylimit.Do(ctx, f.limiter, f.retry, func(ctx context.Context) error {
		resp, err := f.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if err != nil {
			return err
		}
		if int64(len(data)) > f.maxBytes {
			return retrylimit.Fatal(ErrTooLarge)
		}
		return nil
	})
	if err != nil {
		return nil, notImageOnStatus(err)
	}

	f.log.Debug("fetched image", "url", redact(rawURL), "type", contentType, "bytes", len(data))
	return &Image{Data: data, ContentType: contentType}, nil
}

// do performs one request and turns non-200 answers into errors the
// retry loop understands.
func (f *Fetcher) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, retrylimit.Fatal(err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	resp.Body.Close()

	status := &retrylimit.StatusError{Code: resp.StatusCode}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		status.RetryAfter = time.Duration(secs) * time.Second
	}
	if status.Temporary() {
		return nil, status
	}
	return nil, retrylimit.Fatal(fmt.Errorf("%w: %w", ErrNotImage, status))
}

// notImageOnStatus marks a non-200 answer that outlived the retries as
// ErrNotImage; transport errors pass through.
func notImageOnStatus(err error) error {
	var status *retrylimit.StatusError
	if errors.Is(err, ErrNotImage) || !errors.As(err, &status) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNotImage, err)
}

func imageType(resp *http.Response) (string, error) {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !slices.Contains(ImageTypes, mediaType) {
		return "", retrylimit.Fatal(fmt.Errorf("%w: content type %q", ErrNotImage, resp.Header.Get("Content-Type")))
	}
	return mediaType, nil
}

// redact drops the query string, which carries signed tokens on CDN links.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	u.RawQuery = ""
	return u.String()
}
