// Package status serves liveness and Prometheus metrics over HTTP.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keshon/buildinfo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot is what /healthz reports.
type Snapshot struct {
	Connected   bool     `json:"connected"`
	ActiveMenus int      `json:"active_menus"`
	Jobs        []string `json:"jobs"`
}

// Probe reports the live state of the bot.
type Probe func() Snapshot

type Server struct {
	srv     *http.Server
	log     *slog.Logger
	started time.Time
	probe   Probe
}

// New builds a server on addr; probe may be nil.
func New(addr string, probe Probe, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if probe == nil {
		probe = func() Snapshot { return Snapshot{} }
	}
	s := &Server{log: log.With("component", "status"), started: time.Now(), probe: probe}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		snap := s.probe()
		code := http.StatusOK
		state := "ok"
		if !snap.Connected {
			code = http.StatusServiceUnavailable
			state = "disconnected"
		}
		info := buildinfo.Get()
		c.JSON(code, gin.H{
			"status":       state,
			"version":      info.Version,
			"commit":       info.Commit,
			"go":           strings.TrimPrefix(info.GoVersion, "go"),
			"uptime":       time.Since(s.started).Round(time.Second).String(),
			"active_menus": snap.ActiveMenus,
			"jobs":         len(snap.Jobs),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
