package permission

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var resolveFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tagwarden_permission_resolve_failures_total",
	Help: "Level resolutions that failed and fell back to Everyone",
})

// LevelResolver looks up the level of userID in guildID.
type LevelResolver interface {
	Level(guildID, userID string) (Level, error)
}

// ResolverFunc adapts a function to LevelResolver.
type ResolverFunc func(guildID, userID string) (Level, error)

func (f ResolverFunc) Level(guildID, userID string) (Level, error) { return f(guildID, userID) }

// Gate answers "may this member do that". Every call resolves afresh.
type Gate struct {
	resolver LevelResolver
	log      *slog.Logger
}

// NewGate returns a Gate backed by r.
func NewGate(r LevelResolver, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{resolver: r, log: log}
}

// Level returns the member's level; any resolution failure yields Everyone.
func (g *Gate) Level(guildID, userID string) Level {
	l, err := g.resolver.Level(guildID, userID)
	if err != nil {
		resolveFailures.Inc()
		g.log.Debug("failed to resolve permission level", "guild", guildID, "user", userID, "error", err)
		return Everyone
	}
	if !l.Valid() {
		return Everyone
	}
	return l
}

// HasAtLeast reports whether the member's level is at least required.
func (g *Gate) HasAtLeast(guildID, userID string, required Level) bool {
	return g.Level(guildID, userID) >= required
}
