// Package tags implements the tag commands: reusable snippets with an
// optional image that anyone may post and trusted members may manage.
package tags

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/fetch"
	"github.com/keshon/tagwarden/internal/paginator"
	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/internal/storage"
	"github.com/keshon/tagwarden/pkg/cmd"
)

const (
	category = "Tags"

	// ManageLevel is required to add or delete tags, and to list them
	// outside the bot channel.
	ManageLevel = permission.Genius

	addedTTL   = 10 * time.Second
	deletedTTL = 5 * time.Second
)

// Register adds the tag commands to r.
func Register(r *cmd.Registry, deps *command.Deps, mws ...cmd.Middleware) error {
	for _, c := range []command.DiscordCommand{
		&AddTagCommand{Deps: deps},
		&TagListCommand{Deps: deps},
		&DelTagCommand{Deps: deps},
		&TagCommand{Deps: deps},
	} {
		if err := command.RegisterCommand(r, c, mws...); err != nil {
			return err
		}
	}
	return nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// AddTagCommand creates a tag, optionally with the first attachment as its image.
type AddTagCommand struct{ Deps *command.Deps }

func (c *AddTagCommand) Name() string        { return "addtag" }
func (c *AddTagCommand) Aliases() []string   { return []string{"addt"} }
func (c *AddTagCommand) Description() string { return "Add a tag: addtag <name> <content>" }
func (c *AddTagCommand) Category() string    { return category }

func (c *AddTagCommand) RequiredLevel(*command.MessageContext) permission.Level { return ManageLevel }

func (c *AddTagCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	if len(mc.Args) < 2 {
		return command.Invalid("Usage: `addtag <name> <content>`")
	}
	name := strings.ToLower(mc.Args[0])
	if !validName(name) {
		return command.Invalid("Tag name must be alphanumeric.")
	}

	author := mc.Author()
	tag := storage.Tag{
		Name:       name,
		Content:    mc.Rest(1),
		AddedByID:  author.ID,
		AddedByTag: command.UserTag(author),
		AddedAt:    time.Now().UTC(),
	}

	if _, err := c.Deps.Store.Tag(mc.GuildID(), name); err == nil {
		return command.Invalid("Tag with that name already exists.")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if len(mc.Event.Attachments) > 0 {
		img, err := c.Deps.Fetcher.Image(ctx, mc.Event.Attachments[0].URL)
		switch {
		case errors.Is(err, fetch.ErrNotImage), errors.Is(err, fetch.ErrTooLarge):
			return command.Invalid("Attached file was not an image.")
		case err != nil:
			return command.External("fetch attachment", err)
		}
		tag.Image = img.Data
		tag.ImageType = img.ContentType
	}

	if err := c.Deps.Store.AddTag(mc.GuildID(), tag); errors.Is(err, storage.ErrDuplicate) {
		return command.Invalid("Tag with that name already exists.")
	} else if err != nil {
		return err
	}

	e, _ := tagEmbed(tag)
	replyID, err := c.Deps.Messenger.SendEmbed(mc.ChannelID(), e)
	if err != nil {
		return command.External("send reply", err)
	}
	c.Deps.Messenger.DeleteAfter(mc.ChannelID(), replyID, addedTTL)
	c.Deps.Messenger.DeleteAfter(mc.ChannelID(), mc.MessageID(), addedTTL)
	return nil
}

// TagListCommand pages through every tag of the guild.
type TagListCommand struct{ Deps *command.Deps }

func (c *TagListCommand) Name() string        { return "taglist" }
func (c *TagListCommand) Aliases() []string   { return []string{"tlist"} }
func (c *TagListCommand) Description() string { return "List all tags" }
func (c *TagListCommand) Category() string    { return category }

// RequiredLevel lets everyone list tags in the bot channel.
func (c *TagListCommand) RequiredLevel(mc *command.MessageContext) permission.Level {
	botspam, err := c.Deps.Store.Channel(mc.GuildID(), storage.ChannelBotSpam)
	if err == nil && botspam != "" && botspam == mc.ChannelID() {
		return permission.Everyone
	}
	return ManageLevel
}

func (c *TagListCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	tags, err := c.Deps.Store.Tags(mc.GuildID())
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		return command.Invalid("There are no tags defined.")
	}

	src, err := paginator.NewSource(tags, paginator.Config[string, storage.Tag]{
		Key:     groupKey,
		PerPage: c.Deps.PageSize(),
		Compare: strings.Compare,
		Render:  renderList,
	})
	if err != nil {
		return err
	}
	if _, err := c.Deps.Menus.Start(src, mc.ChannelID(), mc.Author().ID); err != nil {
		return command.External("start tag menu", err)
	}
	return nil
}

// DelTagCommand removes a tag.
type DelTagCommand struct{ Deps *command.Deps }

func (c *DelTagCommand) Name() string        { return "deltag" }
func (c *DelTagCommand) Aliases() []string   { return []string{"dtag"} }
func (c *DelTagCommand) Description() string { return "Delete a tag: deltag <name>" }
func (c *DelTagCommand) Category() string    { return category }

func (c *DelTagCommand) RequiredLevel(*command.MessageContext) permission.Level { return ManageLevel }

func (c *DelTagCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	if len(mc.Args) < 1 {
		return command.Invalid("Usage: `deltag <name>`")
	}
	err := c.Deps.Store.RemoveTag(mc.GuildID(), strings.ToLower(mc.Args[0]))
	if errors.Is(err, storage.ErrNotFound) {
		return command.Invalid("That tag does not exist.")
	}
	if err != nil {
		return err
	}

	return c.Deps.Reply(mc, "Deleted.", deletedTTL)
}

// TagCommand posts a tag and counts the use.
type TagCommand struct{ Deps *command.Deps }

func (c *TagCommand) Name() string        { return "tag" }
func (c *TagCommand) Aliases() []string   { return []string{"t"} }
func (c *TagCommand) Description() string { return "Use a tag: tag <name>" }
func (c *TagCommand) Category() string    { return category }

func (c *TagCommand) RequiredLevel(*command.MessageContext) permission.Level {
	return permission.Everyone
}

func (c *TagCommand) Run(ctx context.Context, mc *command.MessageContext) error {
	if len(mc.Args) < 1 {
		return command.Invalid("Usage: `tag <name>`")
	}
	name := strings.ToLower(mc.Args[0])

	uses, err := c.Deps.Store.IncrementTagUses(mc.GuildID(), name)
	if errors.Is(err, storage.ErrNotFound) {
		return command.Invalid("That tag does not exist.")
	}
	if err != nil {
		return err
	}
	tag, err := c.Deps.Store.Tag(mc.GuildID(), name)
	if err != nil {
		return err
	}
	tag.Uses = uses

	e, file := tagEmbed(*tag)
	if file != nil {
		_, err = c.Deps.Messenger.SendEmbed(mc.ChannelID(), e, file)
	} else {
		_, err = c.Deps.Messenger.SendEmbed(mc.ChannelID(), e)
	}
	return command.External("send tag", err)
}
