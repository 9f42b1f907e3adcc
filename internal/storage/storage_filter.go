package storage

import "slices"

func indexWord(words []FilterWord, phrase string) int {
	key := Fold(phrase)
	return slices.IndexFunc(words, func(w FilterWord) bool { return Fold(w.Phrase) == key })
}

func (s *JSONStore) FilterWords(guildID string) ([]FilterWord, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.FilterWords, nil
}

func (s *JSONStore) AddFilterWord(guildID string, word FilterWord) error {
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		if indexWord(r.FilterWords, word.Phrase) >= 0 {
			return ErrDuplicate
		}
		r.FilterWords = append(r.FilterWords, word)
		return nil
	})
}

func (s *JSONStore) RemoveFilterWord(guildID, phrase string) error {
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		i := indexWord(r.FilterWords, phrase)
		if i < 0 {
			return ErrNotFound
		}
		r.FilterWords = slices.Delete(r.FilterWords, i, i+1)
		return nil
	})
}

func (s *JSONStore) SetFilterWordPiracy(guildID, phrase string, piracy bool) error {
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		i := indexWord(r.FilterWords, phrase)
		if i < 0 {
			return ErrNotFound
		}
		r.FilterWords[i].Piracy = piracy
		return nil
	})
}
