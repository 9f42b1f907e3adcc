package storage

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

var (
	// ErrNotFound is returned when the addressed tag or filter word does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a tag or filter word already exists under
	// a case-insensitively equal name.
	ErrDuplicate = errors.New("already exists")
)

// ChannelBotSpam is the named channel where everyone may list tags.
const ChannelBotSpam = "botspam"

const commandHistoryLimit = 20

// Tag is a named snippet of text with an optional image.
type Tag struct {
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	AddedByID  string    `json:"added_by_id"`
	AddedByTag string    `json:"added_by_tag"`
	AddedAt    time.Time `json:"added_at"`
	Uses       int       `json:"uses"`
	Image      []byte    `json:"image,omitempty"`
	ImageType  string    `json:"image_type,omitempty"`
}

// HasImage reports whether the tag carries an image attachment.
func (t Tag) HasImage() bool { return len(t.Image) > 0 }

// FilterWord is a filtered phrase and how it is enforced.
type FilterWord struct {
	Phrase      string `json:"phrase"`
	BypassLevel int    `json:"bypass_level"`
	Notify      bool   `json:"notify"`
	Piracy      bool   `json:"piracy"`
}

type CommandHistoryRecord struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Param       string    `json:"param"`
	Datetime    time.Time `json:"datetime"`
}

// Store is the persistence contract shared by the JSON and SQLite backends.
// Name and phrase lookups are case-insensitive.
type Store interface {
	Tags(guildID string) ([]Tag, error)
	Tag(guildID, name string) (*Tag, error)
	AddTag(guildID string, tag Tag) error
	RemoveTag(guildID, name string) error
	IncrementTagUses(guildID, name string) (int, error)

	FilterWords(guildID string) ([]FilterWord, error)
	AddFilterWord(guildID string, word FilterWord) error
	RemoveFilterWord(guildID, phrase string) error
	SetFilterWordPiracy(guildID, phrase string, piracy bool) error

	// The bool results report whether the set changed.
	WhitelistedGuilds(guildID string) ([]string, error)
	AddWhitelistedGuild(guildID, targetID string) (bool, error)
	RemoveWhitelistedGuild(guildID, targetID string) (bool, error)
	IgnoredChannels(guildID string) ([]string, error)
	AddIgnoredChannel(guildID, channelID string) (bool, error)
	RemoveIgnoredChannel(guildID, channelID string) (bool, error)

	RoleLevels(guildID string) (map[string]int, error)
	// SetRoleLevel maps roleID to level; level 0 removes the mapping.
	SetRoleLevel(guildID, roleID string, level int) error
	// Channel returns "" when the named channel is unset.
	Channel(guildID, kind string) (string, error)
	SetChannel(guildID, kind, channelID string) error

	OfflineReportPing(userID string) (bool, error)
	SetOfflineReportPing(userID string, enabled bool) error

	AppendCommandToHistory(guildID string, record CommandHistoryRecord) error
	FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error)

	Close() error
}

// Fold returns the comparison key used for case-insensitive uniqueness.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
