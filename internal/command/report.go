package command

import (
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
)

const (
	EmbedColor = 0xb01e66
	ErrorColor = 0xe74c3c

	// ErrorReplyTTL is how long error replies and the triggering message stay up.
	ErrorReplyTTL = 10 * time.Second

	fatalMessage = "A fatal error occurred."
)

// Report tells the invoker what went wrong. Denials and validation errors
// are shown as given; anything else is logged and shown generically. The
// reply and the triggering message are removed after ErrorReplyTTL.
func Report(m Messenger, log *slog.Logger, mc *MessageContext, name string, err error) {
	if err == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	var (
		denied  *PermissionDeniedError
		invalid *ValidationError
		text    string
	)
	switch {
	case errors.As(err, &denied):
		text = "You do not have permission to use this command."
		log.Info("command denied", "command", name, "user", mc.Author().ID, "guild", mc.GuildID(),
			"required", denied.Required, "actual", denied.Actual)
	case errors.As(err, &invalid):
		text = invalid.Message
	default:
		text = fatalMessage
		log.Error("command failed", "command", name, "user", mc.Author().ID, "guild", mc.GuildID(),
			"channel", mc.ChannelID(), "error", err)
	}

	e := embed.NewEmbed().SetColor(ErrorColor).SetDescription(text).MessageEmbed
	replyID, sendErr := m.SendEmbed(mc.ChannelID(), e)
	if sendErr != nil {
		log.Warn("failed to send error reply", "command", name, "error", sendErr)
	} else {
		m.DeleteAfter(mc.ChannelID(), replyID, ErrorReplyTTL)
	}
	m.DeleteAfter(mc.ChannelID(), mc.MessageID(), ErrorReplyTTL)
}

// Notice is the plain embed used for short confirmations.
func Notice(text string) *discordgo.MessageEmbed {
	return embed.NewEmbed().SetColor(EmbedColor).SetDescription(text).MessageEmbed
}

// Reply sends a notice and removes it together with the triggering message
// after ttl.
func (d *Deps) Reply(mc *MessageContext, text string, ttl time.Duration) error {
	replyID, err := d.Messenger.SendEmbed(mc.ChannelID(), Notice(text))
	if err != nil {
		return External("send reply", err)
	}
	d.Messenger.DeleteAfter(mc.ChannelID(), replyID, ttl)
	d.Messenger.DeleteAfter(mc.ChannelID(), mc.MessageID(), ttl)
	return nil
}
