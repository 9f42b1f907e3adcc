package storage

// AppendCommandToHistory appends a command history record for a guild,
// keeping only the most recent entries.
func (s *JSONStore) AppendCommandToHistory(guildID string, command CommandHistoryRecord) error {
	return s.updateGuild(guildID, func(r *GuildRecord) error {
		r.CommandsHistory = append(r.CommandsHistory, command)
		if n := len(r.CommandsHistory); n > commandHistoryLimit {
			r.CommandsHistory = r.CommandsHistory[n-commandHistoryLimit:]
		}
		return nil
	})
}

func (s *JSONStore) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistory, nil
}
