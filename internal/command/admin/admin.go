// Package admin holds the bot-level commands: help and profile updates.
package admin

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	embed "github.com/clinet/discordgo-embed"
	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/config"
	"github.com/keshon/tagwarden/internal/fetch"
	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/pkg/cmd"
)

const doneTTL = 5 * time.Second

// Register adds the admin commands to r. help lists what r holds at the
// time it runs, so it sees commands registered later too.
func Register(r *cmd.Registry, deps *command.Deps, mws ...cmd.Middleware) error {
	for _, c := range []command.DiscordCommand{
		&SetAvatarCommand{Deps: deps},
		&HelpCommand{Deps: deps, Registry: r},
	} {
		if err := command.RegisterCommand(r, c, mws...); err != nil {
			return err
		}
	}
	return nil
}

// SetAvatarCommand replaces the bot's avatar with the attached image.
type SetAvatarCommand struct{ Deps *command.Deps }

func (c *SetAvatarCommand) Name() string        { return "setpfp" }
func (c *SetAvatarCommand) Aliases() []string   { return nil }
func (c *SetAvatarCommand) Description() string { return "Set the bot's profile picture" }
func (c *SetAvatarCommand) Category() string    { return "Admin" }

func (c *SetAvatarCommand) RequiredLevel(*command.MessageContext) permission.Level {
	return permission.GuildOwner
}

func (c *SetAvatarCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	if len(mc.Event.Attachments) == 0 {
		return command.Invalid("Please attach an image to use as the profile picture.")
	}
	img, err := c.Deps.Fetcher.Image(ctx, mc.Event.Attachments[0].URL)
	switch {
	case errors.Is(err, fetch.ErrNotImage), errors.Is(err, fetch.ErrTooLarge):
		return command.Invalid("Attached file was not an image.")
	case err != nil:
		return command.External("fetch attachment", err)
	}
	if err := c.Deps.Profile.SetAvatar(ctx, img); err != nil {
		return command.External("set avatar", err)
	}
	c.Deps.Logger().Info("avatar updated", "by", mc.Author().ID, "guild", mc.GuildID(), "bytes", len(img.Data))
	return c.Deps.Reply(mc, "Done!", doneTTL)
}

// HelpCommand lists the commands the invoker may run.
type HelpCommand struct {
	Deps     *command.Deps
	Registry *cmd.Registry
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"commands"} }
func (c *HelpCommand) Description() string { return "List the commands you can use" }
func (c *HelpCommand) Category() string    { return "Information" }

func (c *HelpCommand) RequiredLevel(*command.MessageContext) permission.Level {
	return permission.Everyone
}

func (c *HelpCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	level := c.Deps.Gate.Level(mc.GuildID(), mc.Author().ID)

	byCategory := map[string][]string{}
	for _, each := range c.Registry.GetAll() {
		meta, ok := cmd.Root(each).(command.DiscordMeta)
		if !ok || meta.RequiredLevel(mc) > level {
			continue
		}
		line := "`" + each.Name() + "`"
		if aliases := meta.Aliases(); len(aliases) > 0 {
			line += " (" + strings.Join(aliases, ", ") + ")"
		}
		line += " - " + each.Description()
		byCategory[meta.Category()] = append(byCategory[meta.Category()], line)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	slices.SortFunc(categories, func(a, b string) int {
		return cmp.Or(cmp.Compare(config.CategoryWeight(a), config.CategoryWeight(b)), strings.Compare(a, b))
	})

	var sb strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&sb, "**%s**\n%s\n\n", cat, strings.Join(byCategory[cat], "\n"))
	}

	e := embed.NewEmbed().
		SetTitle("Commands").
		SetDescription(strings.TrimSpace(sb.String())).
		SetColor(command.EmbedColor).
		SetFooter(fmt.Sprintf("Your level: %s", level))
	_, err := c.Deps.Messenger.SendEmbed(mc.ChannelID(), e.MessageEmbed)
	return command.External("send help", err)
}
