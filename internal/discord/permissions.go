package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/tagwarden/internal/permission"
)

// CheckBotPermissions reports whether the bot has ManageMessages permission in a channel.
func CheckBotPermissions(s *discordgo.Session, channelID string) bool {
	if s.State == nil || s.State.User == nil {
		return false
	}
	perms, err := s.UserChannelPermissions(s.State.User.ID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionManageMessages != 0
}

// Members reads guild membership from the session state, falling back to
// the REST API on a miss.
type Members struct {
	s *discordgo.Session
}

func NewMembers(s *discordgo.Session) *Members {
	return &Members{s: s}
}

func (m *Members) guild(guildID string) (*discordgo.Guild, error) {
	if g, err := m.s.State.Guild(guildID); err == nil && g != nil {
		return g, nil
	}
	return m.s.Guild(guildID)
}

func (m *Members) GuildOwnerID(guildID string) (string, error) {
	g, err := m.guild(guildID)
	if err != nil {
		return "", err
	}
	return g.OwnerID, nil
}

func (m *Members) Member(guildID, userID string) (*permission.Member, error) {
	member, err := m.s.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, err = m.s.GuildMember(guildID, userID)
		var rest *discordgo.RESTError
		if errors.As(err, &rest) && rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMember {
			return nil, permission.ErrUnknownMember
		}
		if err != nil {
			return nil, err
		}
	}

	out := &permission.Member{UserID: userID, RoleIDs: member.Roles}
	out.Administrator = IsAdministrator(m.s, guildID, member)
	return out, nil
}

// IsAdministrator reports whether any of the member's roles carries the
// administrator permission.
func IsAdministrator(s *discordgo.Session, guildID string, member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	for _, roleID := range member.Roles {
		if role, _ := s.State.Role(guildID, roleID); role != nil {
			if role.Permissions&discordgo.PermissionAdministrator != 0 {
				return true
			}
		}
	}
	return false
}
