package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/tagwarden/internal/paginator"
	"github.com/keshon/tagwarden/pkg/jobmgr"
)

// mapError marks refusals for missing permissions with paginator.ErrPermission.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %w", paginator.ErrPermission, err)
		}
	}
	if rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %w", paginator.ErrPermission, err)
	}
	return err
}

// isUnknownMessage reports whether err says the message is already gone.
func isUnknownMessage(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code == discordgo.ErrCodeUnknownMessage
	}
	return false
}

// Messenger sends replies on a discordgo session and schedules deletions
// as named jobs.
type Messenger struct {
	s    *discordgo.Session
	jobs *jobmgr.Manager
	log  *slog.Logger
}

func NewMessenger(s *discordgo.Session, jobs *jobmgr.Manager, log *slog.Logger) *Messenger {
	if log == nil {
		log = slog.Default()
	}
	return &Messenger{s: s, jobs: jobs, log: log.With("component", "messenger")}
}

func (m *Messenger) SendEmbed(channelID string, e *discordgo.MessageEmbed, files ...*discordgo.File) (string, error) {
	msg, err := m.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{e},
		Files:  files,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	})
	if err != nil {
		return "", mapError(err)
	}
	return msg.ID, nil
}

// DeleteAfter schedules the deletion; a message already scheduled keeps
// its first deadline.
func (m *Messenger) DeleteAfter(channelID, messageID string, d time.Duration) {
	err := m.jobs.StartAfter("delete:"+messageID, d, func(ctx context.Context) error {
		err := m.s.ChannelMessageDelete(channelID, messageID)
		if isUnknownMessage(err) {
			return nil
		}
		return err
	})
	if err != nil {
		m.log.Debug("delete not scheduled", "channel", channelID, "message", messageID, "error", err)
	}
}

// MenuSurface is the paginator.Surface over a discordgo session.
type MenuSurface struct {
	s *discordgo.Session
	m *Messenger
}

func NewMenuSurface(s *discordgo.Session, m *Messenger) *MenuSurface {
	return &MenuSurface{s: s, m: m}
}

func (ms *MenuSurface) SendEmbed(channelID string, e *discordgo.MessageEmbed) (string, error) {
	return ms.m.SendEmbed(channelID, e)
}

func (ms *MenuSurface) EditEmbed(channelID, messageID string, e *discordgo.MessageEmbed) error {
	_, err := ms.s.ChannelMessageEditEmbed(channelID, messageID, e)
	return mapError(err)
}

func (ms *MenuSurface) AddReaction(channelID, messageID, emoji string) error {
	return mapError(ms.s.MessageReactionAdd(channelID, messageID, emoji))
}

func (ms *MenuSurface) RemoveReaction(channelID, messageID, emoji, userID string) error {
	return mapError(ms.s.MessageReactionRemove(channelID, messageID, emoji, userID))
}

func (ms *MenuSurface) ClearReactions(channelID, messageID string) error {
	return mapError(ms.s.MessageReactionsRemoveAll(channelID, messageID))
}

func (ms *MenuSurface) CanManageMessages(channelID string) bool {
	return CheckBotPermissions(ms.s, channelID)
}
