// Package storage persists per-guild bot state.
package storage

import (
	"log/slog"

	"github.com/keshon/tagwarden/datastore"
)

// GuildRecord is the JSON document kept per guild.
type GuildRecord struct {
	Tags              []Tag                  `json:"tags"`
	FilterWords       []FilterWord           `json:"filter_words"`
	WhitelistedGuilds []string               `json:"whitelisted_guilds"`
	IgnoredChannels   []string               `json:"ignored_channels"`
	RoleLevels        map[string]int         `json:"role_levels"`
	Channels          map[string]string      `json:"channels"`
	CommandsHistory   []CommandHistoryRecord `json:"cmd_history"`
}

// UserRecord is the JSON document kept per user.
type UserRecord struct {
	OfflineReportPing bool `json:"offline_report_ping"`
}

// JSONStore implements Store on the JSON datastore. Every mutation is a
// single datastore.Update, so check-and-insert cannot interleave.
type JSONStore struct {
	ds *datastore.DataStore
}

var _ Store = (*JSONStore)(nil)

// New opens (or creates) the JSON store at filePath.
func New(filePath string, log *slog.Logger) (*JSONStore, error) {
	cfg := datastore.DefaultConfig(filePath)
	cfg.Logger = log
	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &JSONStore{ds: ds}, nil
}

func (s *JSONStore) Close() error {
	return s.ds.Close()
}

func userKey(userID string) string { return "user:" + userID }

// guildRecord loads the record for a guild; a missing guild is an empty record.
func (s *JSONStore) guildRecord(guildID string) (*GuildRecord, error) {
	var record GuildRecord
	if _, err := s.ds.Get(guildID, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// updateGuild runs fn on the guild record under the datastore write lock.
func (s *JSONStore) updateGuild(guildID string, fn func(r *GuildRecord) error) error {
	return datastore.Update(s.ds, guildID, fn)
}
