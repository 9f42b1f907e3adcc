// Package paginator turns a grouped snapshot into pages and drives
// reaction-navigated menus over them.
package paginator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
)

// Group is an ordered run of entries sharing one key.
type Group[K comparable, T any] struct {
	Key     K
	Entries []T
}

// Page is one materialized page of a PageSource.
type Page[K comparable, T any] struct {
	Index  int
	Count  int
	Groups []Group[K, T]
}

// Entries flattens the page's groups in display order.
func (p Page[K, T]) Entries() []T {
	var out []T
	for _, g := range p.Groups {
		out = append(out, g.Entries...)
	}
	return out
}

// Len is the number of entries on the page.
func (p Page[K, T]) Len() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Entries)
	}
	return n
}

// RenderFunc formats one page. It must not depend on anything but the page.
type RenderFunc[K comparable, T any] func(page Page[K, T]) *discordgo.MessageEmbed

// Source is what a menu session needs from a page source.
type Source interface {
	PageCount() int
	Render(index int) (*discordgo.MessageEmbed, error)
}

// Config describes how a collection is grouped, packed and rendered.
type Config[K comparable, T any] struct {
	Key     func(T) K
	PerPage int
	// Compare orders groups by key. Nil keeps first-appearance order.
	Compare func(a, b K) int
	Render  RenderFunc[K, T]
}

// piece is a slice [from, to) of one group placed on a page.
type piece struct {
	group    int
	from, to int
}

// PageSource is an immutable, paged view over a snapshot of entries.
type PageSource[K comparable, T any] struct {
	groups []Group[K, T]
	pages  [][]piece
	render RenderFunc[K, T]
}

// NewSource copies entries, groups them and computes page boundaries once.
//
// Whole groups are packed onto a page while they fit under PerPage. A group
// larger than PerPage never shares a page and is split over consecutive
// dedicated pages of PerPage entries.
func NewSource[K comparable, T any](entries []T, cfg Config[K, T]) (*PageSource[K, T], error) {
	if cfg.PerPage <= 0 {
		return nil, fmt.Errorf("paginator: per-page must be positive, got %d", cfg.PerPage)
	}
	if cfg.Key == nil {
		return nil, errors.New("paginator: key function is required")
	}
	if cfg.Render == nil {
		return nil, errors.New("paginator: render function is required")
	}

	src := &PageSource[K, T]{
		groups: groupEntries(entries, cfg.Key),
		render: cfg.Render,
	}
	if cfg.Compare != nil {
		slices.SortStableFunc(src.groups, func(a, b Group[K, T]) int {
			return cfg.Compare(a.Key, b.Key)
		})
	}
	src.pages = pack(src.groups, cfg.PerPage)
	return src, nil
}

func groupEntries[K comparable, T any](entries []T, key func(T) K) []Group[K, T] {
	index := make(map[K]int)
	var groups []Group[K, T]
	for _, e := range entries {
		k := key(e)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, T]{Key: k})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

func pack[K comparable, T any](groups []Group[K, T], perPage int) [][]piece {
	var (
		pages [][]piece
		cur   []piece
		size  int
	)
	flush := func() {
		if len(cur) > 0 {
			pages = append(pages, cur)
			cur, size = nil, 0
		}
	}

	for gi, g := range groups {
		n := len(g.Entries)
		if n > perPage {
			flush()
			for from := 0; from < n; from += perPage {
				pages = append(pages, []piece{{group: gi, from: from, to: min(from+perPage, n)}})
			}
			continue
		}
		if size+n > perPage {
			flush()
		}
		cur = append(cur, piece{group: gi, from: 0, to: n})
		size += n
	}
	flush()
	return pages
}

// PageCount is fixed for the lifetime of the source.
func (s *PageSource[K, T]) PageCount() int {
	return len(s.pages)
}

// Groups returns the groups in page order.
func (s *PageSource[K, T]) Groups() []Group[K, T] {
	return slices.Clone(s.groups)
}

// Page materializes page index.
func (s *PageSource[K, T]) Page(index int) (Page[K, T], error) {
	if index < 0 || index >= len(s.pages) {
		return Page[K, T]{}, &OutOfRangeError{Index: index, Count: len(s.pages)}
	}
	p := Page[K, T]{Index: index, Count: len(s.pages)}
	for _, pc := range s.pages[index] {
		g := s.groups[pc.group]
		p.Groups = append(p.Groups, Group[K, T]{
			Key:     g.Key,
			Entries: g.Entries[pc.from:pc.to:pc.to],
		})
	}
	return p, nil
}

// Render formats page index and stamps the page footer.
func (s *PageSource[K, T]) Render(index int) (*discordgo.MessageEmbed, error) {
	p, err := s.Page(index)
	if err != nil {
		return nil, err
	}
	e := s.render(p)
	if e == nil {
		e = embed.NewEmbed().MessageEmbed
	}
	e.Footer = &discordgo.MessageEmbedFooter{Text: Footer(index, p.Count)}
	return e, nil
}

// Footer is the page indicator shown under every menu page.
func Footer(index, count int) string {
	return fmt.Sprintf("Page %d of %d", index+1, count)
}
