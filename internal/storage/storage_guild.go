package storage

import (
	"errors"
	"slices"

	"github.com/keshon/tagwarden/datastore"
)

// errUnchanged aborts an update whose set operation was a no-op.
var errUnchanged = errors.New("unchanged")

func (s *JSONStore) updateSet(guildID string, field func(r *GuildRecord) *[]string, id string, add bool) (bool, error) {
	err := s.updateGuild(guildID, func(r *GuildRecord) error {
		set := field(r)
		i := slices.Index(*set, id)
		switch {
		case add && i >= 0, !add && i < 0:
			return errUnchanged
		case add:
			*set = append(*set, id)
		default:
			*set = slices.Delete(*set, i, i+1)
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	return err == nil, err
}

func whitelist(r *GuildRecord) *[]string { return &r.WhitelistedGuilds }
func ignored(r *GuildRecord) *[]string   { return &r.IgnoredChannels }

func (s *JSONStore) WhitelistedGuilds(guildID string) ([]string, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.WhitelistedGuilds, nil
}

func (s *JSONStore) AddWhitelistedGuild(guildID, targetID string) (bool, error) {
	return s.updateSet(guildID, whitelist, targetID, true)
}

func (s *JSONStore) RemoveWhitelistedGuild(guildID, targetID string) (bool, error) {
	return s.updateSet(guildID, whitelist, targetID, false)
}

func (s *JSONStore) IgnoredChannels(guildID string) ([]string, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.IgnoredChannels, nil
}

func (s *JSONStore) AddIgnoredChannel(guildID, channelID string) (bool, error) {
	return s.updateSet(guildID, ignored, channelID, true)
}

func (s *JSONStore) RemoveIgnoredChannel(guildID, channelID string) (bool, error) {
	return s.updateSet(guildID, ignored, channelID, false)
}

func (s *JSONStore) RoleLevels(guildID string) (map[string]int, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	if record.RoleLevels == nil {
		return map[string]int{}, nil
	}
	return record.RoleLevels, nil
}

func (s *JSONStore) SetRoleLevel(guildID, roleID string, level int) error {
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		if level <= 0 {
			delete(r.RoleLevels, roleID)
			return nil
		}
		if r.RoleLevels == nil {
			r.RoleLevels = map[string]int{}
		}
		r.RoleLevels[roleID] = level
		return nil
	})
}

func (s *JSONStore) Channel(guildID, kind string) (string, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return "", err
	}
	return record.Channels[kind], nil
}

func (s *JSONStore) SetChannel(guildID, kind, channelID string) error {
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		if channelID == "" {
			delete(r.Channels, kind)
			return nil
		}
		if r.Channels == nil {
			r.Channels = map[string]string{}
		}
		r.Channels[kind] = channelID
		return nil
	})
}

func (s *JSONStore) OfflineReportPing(userID string) (bool, error) {
	var record UserRecord
	if _, err := s.ds.Get(userKey(userID), &record); err != nil {
		return false, err
	}
	return record.OfflineReportPing, nil
}

func (s *JSONStore) SetOfflineReportPing(userID string, enabled bool) error {
	return datastore.Update(s.ds, userKey(userID), func(r *UserRecord) error {
		r.OfflineReportPing = enabled
		return nil
	})
}
