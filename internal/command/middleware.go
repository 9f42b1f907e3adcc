package command

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/internal/storage"
	"github.com/keshon/tagwarden/pkg/cmd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagwarden_command_invocations_total",
		Help: "Chat command invocations by command and outcome",
	}, []string{"command", "outcome"})

	duration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tagwarden_command_duration_seconds",
		Help:    "Chat command run time",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
)

// WithGuildOnly drops invocations outside a guild.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if v, ok := inv.Data.(*MessageContext); ok && v.GuildID() == "" {
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithPermissionLevel rejects invokers below the command's required level
// before the command touches anything.
func WithPermissionLevel(gate *permission.Gate) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			mc, ok := inv.Data.(*MessageContext)
			if !ok {
				return c.Run(ctx, inv)
			}
			meta, ok := cmd.Root(c).(DiscordMeta)
			if !ok {
				return c.Run(ctx, inv)
			}

			required := meta.RequiredLevel(mc)
			if required <= permission.Everyone {
				return c.Run(ctx, inv)
			}
			actual := gate.Level(mc.GuildID(), mc.Author().ID)
			if actual < required {
				return &PermissionDeniedError{Required: required, Actual: actual}
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithCommandLogger logs each run, records metrics and appends allowed runs
// to the guild's command history.
func WithCommandLogger(store storage.Store, log *slog.Logger) cmd.Middleware {
	if log == nil {
		log = slog.Default()
	}
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)
			elapsed := time.Since(start)

			duration.WithLabelValues(c.Name()).Observe(elapsed.Seconds())
			invocations.WithLabelValues(c.Name(), outcome(err)).Inc()

			mc, ok := inv.Data.(*MessageContext)
			if !ok {
				return err
			}
			author := mc.Author()
			log.Debug("command run", "command", c.Name(), "user", author.ID, "guild", mc.GuildID(),
				"channel", mc.ChannelID(), "elapsed", elapsed, "outcome", outcome(err))

			// Denied runs leave the store untouched; Report logs them.
			if store != nil && mc.GuildID() != "" && outcome(err) != "denied" {
				rec := storage.CommandHistoryRecord{
					ChannelID: mc.ChannelID(),
					UserID:    author.ID,
					Username:  author.Username,
					Command:   c.Name(),
					Param:     strings.Join(inv.Args, " "),
					Datetime:  start.UTC(),
				}
				if herr := store.AppendCommandToHistory(mc.GuildID(), rec); herr != nil {
					log.Warn("failed to log command", "command", c.Name(), "error", herr)
				}
			}
			return err
		})
	}
}

func outcome(err error) string {
	var (
		denied  *PermissionDeniedError
		invalid *ValidationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &denied):
		return "denied"
	case errors.As(err, &invalid):
		return "invalid"
	}
	return "error"
}
