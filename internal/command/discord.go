// Package command holds the chat command contract, its middleware and the
// error reporting shared by every command package.
package command

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/tagwarden/internal/fetch"
	"github.com/keshon/tagwarden/internal/paginator"
	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/internal/storage"
	"github.com/keshon/tagwarden/pkg/cmd"
)

// MessageContext is what the gateway adapter passes as Invocation.Data for
// a prefixed chat message.
type MessageContext struct {
	Event *discordgo.MessageCreate
	Args  []string
}

func (m *MessageContext) GuildID() string   { return m.Event.GuildID }
func (m *MessageContext) ChannelID() string { return m.Event.ChannelID }
func (m *MessageContext) MessageID() string { return m.Event.ID }
func (m *MessageContext) Author() *discordgo.User {
	if m.Event.Author == nil {
		return &discordgo.User{}
	}
	return m.Event.Author
}

// Rest joins the arguments from index i on.
func (m *MessageContext) Rest(i int) string {
	if i >= len(m.Args) {
		return ""
	}
	return strings.Join(m.Args[i:], " ")
}

// Messenger is the outbound side of the chat platform used by commands.
type Messenger interface {
	SendEmbed(channelID string, e *discordgo.MessageEmbed, files ...*discordgo.File) (messageID string, err error)
	// DeleteAfter deletes the message after d without blocking; d <= 0
	// deletes right away.
	DeleteAfter(channelID, messageID string, d time.Duration)
}

// MenuStarter starts paginated menus.
type MenuStarter interface {
	Start(src paginator.Source, channelID, ownerID string) (*paginator.Session, error)
}

// ImageFetcher downloads image attachments.
type ImageFetcher interface {
	Image(ctx context.Context, url string) (*fetch.Image, error)
}

// ProfileEditor changes the bot's own profile.
type ProfileEditor interface {
	SetAvatar(ctx context.Context, img *fetch.Image) error
}

// Deps are the collaborators handed to every command.
type Deps struct {
	Store     storage.Store
	Gate      *permission.Gate
	Messenger Messenger
	Menus     MenuStarter
	Fetcher   ImageFetcher
	Profile   ProfileEditor
	Log       *slog.Logger
	PerPage   int
}

// DefaultPerPage is the menu page size when Deps.PerPage is unset.
const DefaultPerPage = 12

// PageSize returns d.PerPage or DefaultPerPage.
func (d *Deps) PageSize() int {
	if d.PerPage <= 0 {
		return DefaultPerPage
	}
	return d.PerPage
}

// Logger returns d.Log or the default logger.
func (d *Deps) Logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

// DiscordMeta is what middleware reads from a command without knowing its
// concrete type.
type DiscordMeta interface {
	Aliases() []string
	Category() string
	RequiredLevel(mc *MessageContext) permission.Level
}

// DiscordCommand is implemented by each chat command.
type DiscordCommand interface {
	DiscordMeta
	Name() string
	Description() string
	Run(ctx context.Context, mc *MessageContext) error
}

// DiscordAdapter adapts a DiscordCommand to cmd.Command.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string        { return a.Cmd.Name() }
func (a *DiscordAdapter) Description() string { return a.Cmd.Description() }
func (a *DiscordAdapter) Aliases() []string   { return a.Cmd.Aliases() }
func (a *DiscordAdapter) Category() string    { return a.Cmd.Category() }

func (a *DiscordAdapter) RequiredLevel(mc *MessageContext) permission.Level {
	return a.Cmd.RequiredLevel(mc)
}

func (a *DiscordAdapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, ok := inv.Data.(*MessageContext)
	if !ok {
		return nil
	}
	return a.Cmd.Run(ctx, mc)
}

// RegisterCommand adds a command to r behind the given middleware.
func RegisterCommand(r *cmd.Registry, c DiscordCommand, mws ...cmd.Middleware) error {
	return r.Register(cmd.Apply(&DiscordAdapter{Cmd: c}, mws...))
}
