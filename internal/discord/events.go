package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/paginator"
)

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	name, args, ok := command.Parse(m.Content, b.prefix)
	if !ok {
		return
	}

	mc := &command.MessageContext{Event: m, Args: args}
	go func() {
		ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
		defer cancel()
		command.Dispatch(ctx, b.registry, b.deps, mc, name)
	}()
}

func (b *Bot) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	bot := r.Member != nil && r.Member.User != nil && r.Member.User.Bot
	b.menus.HandleReaction(reactionEvent(s, r.MessageReaction, true, bot))
}

func (b *Bot) onMessageReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	b.menus.HandleReaction(reactionEvent(s, r.MessageReaction, false, false))
}

func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	b.menus.HandleMessageDelete(m.ID)
}

func (b *Bot) onMessageDeleteBulk(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
	for _, id := range m.Messages {
		b.menus.HandleMessageDelete(id)
	}
}

// reactionEvent converts a gateway reaction. The bot's own reactions are
// always flagged as bot reactions.
func reactionEvent(s *discordgo.Session, r *discordgo.MessageReaction, added, bot bool) paginator.ReactionEvent {
	if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
		bot = true
	}
	return paginator.ReactionEvent{
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
		Added:     added,
		Bot:       bot,
	}
}
