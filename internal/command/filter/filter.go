// Package filter manages the word filter and its exemptions: filtered
// phrases, whitelisted invite targets and ignored channels.
package filter

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/paginator"
	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/internal/storage"
	"github.com/keshon/tagwarden/pkg/cmd"
)

const (
	category = "Filter"

	shortTTL = 5 * time.Second
	longTTL  = 10 * time.Second

	listColor = 0x5865f2
)

// Register adds the filter commands to r.
func Register(r *cmd.Registry, deps *command.Deps, mws ...cmd.Middleware) error {
	for _, c := range []command.DiscordCommand{
		&AddCommand{Deps: deps},
		&ListCommand{Deps: deps},
		&PiracyCommand{Deps: deps},
		&RemoveCommand{Deps: deps},
		&WhitelistCommand{Deps: deps},
		&BlacklistCommand{Deps: deps},
		&IgnoreChannelCommand{Deps: deps},
		&UnignoreChannelCommand{Deps: deps},
		&OfflinePingCommand{Deps: deps},
	} {
		if err := command.RegisterCommand(r, c, mws...); err != nil {
			return err
		}
	}
	return nil
}

// admin is embedded by every command here that requires Administrator.
type admin struct{}

func (admin) Aliases() []string { return nil }
func (admin) Category() string  { return category }

func (admin) RequiredLevel(*command.MessageContext) permission.Level {
	return permission.Administrator
}

// AddCommand adds a phrase to the filter.
type AddCommand struct {
	admin
	Deps *command.Deps
}

func (c *AddCommand) Name() string { return "filter" }
func (c *AddCommand) Description() string {
	return "Add a word to filter: filter <notify> <bypass level> <phrase>"
}

func (c *AddCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	if len(mc.Args) < 3 {
		return command.Invalid("Usage: `filter <notify> <bypass level> <phrase>`")
	}
	notify, err := command.ParseBool(mc.Args[0])
	if err != nil {
		return err
	}
	bypass, err := strconv.Atoi(mc.Args[1])
	if err != nil || !permission.Level(bypass).Valid() {
		return command.Invalid("Bypass level must be between %d and %d.", permission.Everyone, permission.MaxLevel)
	}
	phrase := mc.Rest(2)

	err = c.Deps.Store.AddFilterWord(mc.GuildID(), storage.FilterWord{
		Phrase:      phrase,
		BypassLevel: bypass,
		Notify:      notify,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return command.Invalid("That word is already filtered.")
	}
	if err != nil {
		return err
	}

	will := "will not"
	if notify {
		will = "will"
	}
	text := fmt.Sprintf("Added new word to filter! This filter %s ping for reports, level %d can bypass it, and the phrase is %s",
		will, bypass, command.Sanitize(phrase))
	_, err = c.Deps.Messenger.SendEmbed(mc.ChannelID(), command.Notice(text))
	return command.External("send reply", err)
}

// ListCommand pages through the filtered words grouped by bypass level.
type ListCommand struct {
	admin
	Deps *command.Deps
}

func (c *ListCommand) Name() string        { return "filterlist" }
func (c *ListCommand) Description() string { return "List filtered words" }

func (c *ListCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	words, err := c.Deps.Store.FilterWords(mc.GuildID())
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return command.Invalid("There are no filtered words.")
	}
	slices.SortStableFunc(words, func(a, b storage.FilterWord) int {
		return strings.Compare(storage.Fold(a.Phrase), storage.Fold(b.Phrase))
	})

	src, err := paginator.NewSource(words, paginator.Config[int, storage.FilterWord]{
		Key:     func(w storage.FilterWord) int { return w.BypassLevel },
		PerPage: c.Deps.PageSize(),
		Compare: cmp.Compare[int],
		Render:  renderWords,
	})
	if err != nil {
		return err
	}
	if _, err := c.Deps.Menus.Start(src, mc.ChannelID(), mc.Author().ID); err != nil {
		return command.External("start filter menu", err)
	}
	return nil
}

func renderWords(p paginator.Page[int, storage.FilterWord]) *discordgo.MessageEmbed {
	e := embed.NewEmbed().SetTitle("Filtered words").SetColor(listColor)
	for _, w := range p.Entries() {
		value := fmt.Sprintf("Bypassed by: %s\nWill report: %s", permission.Level(w.BypassLevel), command.YesNo(w.Notify))
		if w.Piracy {
			value += "\nThis is a piracy word"
		}
		e.AddField(w.Phrase, value)
	}
	return e.MessageEmbed
}

// PiracyCommand flags an existing filter word as piracy related.
type PiracyCommand struct {
	admin
	Deps *command.Deps
}

func (c *PiracyCommand) Name() string        { return "piracy" }
func (c *PiracyCommand) Description() string { return "Mark a filtered word as piracy: piracy <phrase>" }

func (c *PiracyCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	if len(mc.Args) == 0 {
		return command.Invalid("Usage: `piracy <phrase>`")
	}
	err := c.Deps.Store.SetFilterWordPiracy(mc.GuildID(), mc.Rest(0), true)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.Deps.Reply(mc, "That word is not filtered.", shortTTL)
	case err != nil:
		return err
	}
	return c.Deps.Reply(mc, "Marked as a piracy word!", shortTTL)
}

// RemoveCommand removes a phrase from the filter.
type RemoveCommand struct {
	admin
	Deps *command.Deps
}

func (c *RemoveCommand) Name() string        { return "filterremove" }
func (c *RemoveCommand) Description() string { return "Remove a word from the filter: filterremove <phrase>" }

func (c *RemoveCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	if len(mc.Args) == 0 {
		return command.Invalid("Usage: `filterremove <phrase>`")
	}
	err := c.Deps.Store.RemoveFilterWord(mc.GuildID(), mc.Rest(0))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.Deps.Reply(mc, "That word is not filtered.", shortTTL)
	case err != nil:
		return err
	}
	return c.Deps.Reply(mc, "Deleted!", shortTTL)
}

func guildIDArg(mc *command.MessageContext, usage string) (string, error) {
	if len(mc.Args) != 1 {
		return "", command.Invalid("Usage: `%s <server id>`", usage)
	}
	if _, err := strconv.ParseUint(mc.Args[0], 10, 64); err != nil {
		return "", command.Invalid("%q is not a valid server ID.", mc.Args[0])
	}
	return mc.Args[0], nil
}

// WhitelistCommand exempts a server from the invite filter.
type WhitelistCommand struct {
	admin
	Deps *command.Deps
}

func (c *WhitelistCommand) Name() string { return "whitelist" }
func (c *WhitelistCommand) Description() string {
	return "Whitelist a server from the invite filter: whitelist <server id>"
}

func (c *WhitelistCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	id, err := guildIDArg(mc, "whitelist")
	if err != nil {
		return err
	}
	added, err := c.Deps.Store.AddWhitelistedGuild(mc.GuildID(), id)
	if err != nil {
		return err
	}
	if !added {
		return c.Deps.Reply(mc, "That server is already whitelisted.", longTTL)
	}
	return c.Deps.Reply(mc, "Whitelisted.", longTTL)
}

// BlacklistCommand removes a server from the invite whitelist.
type BlacklistCommand struct {
	admin
	Deps *command.Deps
}

func (c *BlacklistCommand) Name() string { return "blacklist" }
func (c *BlacklistCommand) Description() string {
	return "Remove a server from the invite whitelist: blacklist <server id>"
}

func (c *BlacklistCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	id, err := guildIDArg(mc, "blacklist")
	if err != nil {
		return err
	}
	removed, err := c.Deps.Store.RemoveWhitelistedGuild(mc.GuildID(), id)
	if err != nil {
		return err
	}
	if !removed {
		return c.Deps.Reply(mc, "That server is already blacklisted.", longTTL)
	}
	return c.Deps.Reply(mc, "Blacklisted.", longTTL)
}

func channelArg(mc *command.MessageContext, usage string) (string, error) {
	if len(mc.Args) != 1 {
		return "", command.Invalid("Usage: `%s <#channel>`", usage)
	}
	id, ok := command.ParseChannelMention(mc.Args[0])
	if !ok {
		return "", command.Invalid("Channel %q not found.", mc.Args[0])
	}
	return id, nil
}

// IgnoreChannelCommand exempts a channel from the filter.
type IgnoreChannelCommand struct {
	admin
	Deps *command.Deps
}

func (c *IgnoreChannelCommand) Name() string        { return "ignorechannel" }
func (c *IgnoreChannelCommand) Description() string { return "Ignore a channel in the filter: ignorechannel <#channel>" }

func (c *IgnoreChannelCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	id, err := channelArg(mc, "ignorechannel")
	if err != nil {
		return err
	}
	added, err := c.Deps.Store.AddIgnoredChannel(mc.GuildID(), id)
	if err != nil {
		return err
	}
	if !added {
		return c.Deps.Reply(mc, "That channel is already ignored.", longTTL)
	}
	return c.Deps.Reply(mc, "Ignored.", longTTL)
}

// UnignoreChannelCommand puts a channel back under the filter.
type UnignoreChannelCommand struct {
	admin
	Deps *command.Deps
}

func (c *UnignoreChannelCommand) Name() string { return "unignorechannel" }
func (c *UnignoreChannelCommand) Description() string {
	return "Stop ignoring a channel in the filter: unignorechannel <#channel>"
}

func (c *UnignoreChannelCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	id, err := channelArg(mc, "unignorechannel")
	if err != nil {
		return err
	}
	removed, err := c.Deps.Store.RemoveIgnoredChannel(mc.GuildID(), id)
	if err != nil {
		return err
	}
	if !removed {
		return c.Deps.Reply(mc, "That channel is not already ignored.", longTTL)
	}
	return c.Deps.Reply(mc, "Unignored.", longTTL)
}

// OfflinePingCommand sets whether the invoker is pinged for reports while offline.
type OfflinePingCommand struct {
	Deps *command.Deps
}

func (c *OfflinePingCommand) Name() string      { return "offlineping" }
func (c *OfflinePingCommand) Aliases() []string { return nil }
func (c *OfflinePingCommand) Category() string  { return category }
func (c *OfflinePingCommand) Description() string {
	return "Get pinged for reports while offline: offlineping <true/false>"
}

func (c *OfflinePingCommand) RequiredLevel(*command.MessageContext) permission.Level {
	return permission.Moderator
}

func (c *OfflinePingCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	if len(mc.Args) != 1 {
		return command.Invalid("Usage: `offlineping <true/false>`")
	}
	enabled, err := command.ParseBool(mc.Args[0])
	if err != nil {
		return err
	}
	if err := c.Deps.Store.SetOfflineReportPing(mc.Author().ID, enabled); err != nil {
		return err
	}

	text := "You won't be pinged for reports when offline"
	if enabled {
		text = "You will now be pinged for reports when offline"
	}
	_, err = c.Deps.Messenger.SendEmbed(mc.ChannelID(), command.Notice(text))
	return command.External("send reply", err)
}
