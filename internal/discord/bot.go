// Package discord connects the command and menu layers to the Discord
// gateway.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/paginator"
	"github.com/keshon/tagwarden/pkg/cmd"
)

// commandTimeout bounds a single command invocation.
const commandTimeout = 2 * time.Minute

// Intents covers prefixed commands and menu reactions.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentMessageContent

// Bot routes gateway events to the command registry and the menu manager.
type Bot struct {
	dg       *discordgo.Session
	prefix   string
	registry *cmd.Registry
	deps     *command.Deps
	menus    *paginator.Manager
	log      *slog.Logger

	ctx       context.Context
	connected atomic.Bool
}

// NewSession creates a discordgo session with synchronous event delivery,
// so handlers see events in gateway order.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.SyncEvents = true
	dg.StateEnabled = true
	dg.Identify.Intents = Intents
	return dg, nil
}

// NewBot wires handlers onto dg. The session is opened by Run.
func NewBot(dg *discordgo.Session, prefix string, registry *cmd.Registry, deps *command.Deps, menus *paginator.Manager) *Bot {
	b := &Bot{
		dg:       dg,
		prefix:   prefix,
		registry: registry,
		deps:     deps,
		menus:    menus,
		log:      deps.Logger().With("component", "bot"),
		ctx:      context.Background(),
	}
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onDisconnect)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onMessageReactionAdd)
	dg.AddHandler(b.onMessageReactionRemove)
	dg.AddHandler(b.onMessageDelete)
	dg.AddHandler(b.onMessageDeleteBulk)
	return b
}

// Connected reports whether the gateway session is up.
func (b *Bot) Connected() bool { return b.connected.Load() }

// Run opens the gateway and blocks until ctx is done. Open menus are shut
// down before the session closes.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.log.Info("shutdown signal received, cleaning up")
	b.menus.Shutdown()
	b.connected.Store(false)
	return b.dg.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.connected.Store(true)
	b.log.Info("discord bot is running", "user", r.User.Username, "guilds", len(r.Guilds), "prefix", b.prefix)
}

func (b *Bot) onDisconnect(s *discordgo.Session, d *discordgo.Disconnect) {
	b.connected.Store(false)
	b.log.Warn("gateway disconnected")
}
