package permission

import (
	"errors"
	"fmt"
)

// ErrUnknownMember is returned when the member cannot be found in the guild.
var ErrUnknownMember = errors.New("unknown member")

// Member is the part of a guild member that level resolution looks at.
type Member struct {
	UserID  string
	RoleIDs []string
	// Administrator is set when any of the member's roles carries the
	// platform's administrator permission.
	Administrator bool
}

// MemberSource reads guild membership from the chat platform.
type MemberSource interface {
	GuildOwnerID(guildID string) (string, error)
	Member(guildID, userID string) (*Member, error)
}

// RoleLevelStore holds the role -> level mapping configured per guild.
type RoleLevelStore interface {
	RoleLevels(guildID string) (map[string]int, error)
}

// RoleResolver derives a level from guild ownership, mapped roles and the
// administrator permission bit.
type RoleResolver struct {
	Members     MemberSource
	Roles       RoleLevelStore
	DeveloperID string
}

func (r *RoleResolver) Level(guildID, userID string) (Level, error) {
	if r.DeveloperID != "" && userID == r.DeveloperID {
		return GuildOwner, nil
	}

	ownerID, err := r.Members.GuildOwnerID(guildID)
	if err != nil {
		return Everyone, fmt.Errorf("guild owner: %w", err)
	}
	if ownerID == userID {
		return GuildOwner, nil
	}

	member, err := r.Members.Member(guildID, userID)
	if err != nil {
		return Everyone, fmt.Errorf("member: %w", err)
	}
	if member == nil {
		return Everyone, ErrUnknownMember
	}

	levels, err := r.Roles.RoleLevels(guildID)
	if err != nil {
		return Everyone, fmt.Errorf("role levels: %w", err)
	}

	level := Everyone
	for _, roleID := range member.RoleIDs {
		if l := Level(levels[roleID]); l.Valid() && l > level {
			level = l
		}
	}
	if member.Administrator && level < Administrator {
		level = Administrator
	}
	return level, nil
}
