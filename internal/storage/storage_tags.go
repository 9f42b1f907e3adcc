package storage

import (
	"slices"
	"strings"
)

func indexTag(tags []Tag, name string) int {
	key := Fold(name)
	return slices.IndexFunc(tags, func(t Tag) bool { return Fold(t.Name) == key })
}

// Tags returns the guild's tags sorted by name.
func (s *JSONStore) Tags(guildID string) ([]Tag, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	tags := record.Tags
	slices.SortFunc(tags, func(a, b Tag) int { return strings.Compare(a.Name, b.Name) })
	return tags, nil
}

func (s *JSONStore) Tag(guildID, name string) (*Tag, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	i := indexTag(record.Tags, name)
	if i < 0 {
		return nil, ErrNotFound
	}
	return &record.Tags[i], nil
}

func (s *JSONStore) AddTag(guildID string, tag Tag) error {
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		if indexTag(r.Tags, tag.Name) >= 0 {
			return ErrDuplicate
		}
		r.Tags = append(r.Tags, tag)
		return nil
	})
}

func (s *JSONStore) RemoveTag(guildID, name string) error {
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		i := indexTag(r.Tags, name)
		if i < 0 {
			return ErrNotFound
		}
		r.Tags = slices.Delete(r.Tags, i, i+1)
		return nil
	})
}

// IncrementTagUses bumps the use count and returns the new value.
func (s *JSONStore) IncrementTagUses(guildID, name string) (int, error) {
	var uses int
	err := s.updateGuild(guildID, func(r *GuildRecord) error {
		i := indexTag(r.Tags, name)
		if i < 0 {
			return ErrNotFound
		}
		r.Tags[i].Uses++
		uses = r.Tags[i].Uses
		return nil
	})
	return uses, err
}
