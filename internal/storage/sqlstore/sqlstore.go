// Package sqlstore implements storage.Store on SQLite.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/keshon/tagwarden/internal/storage"
	"github.com/mattn/go-sqlite3"
)

const historyLimit = 20

// Store is a storage.Store backed by a SQLite database. Case-insensitive
// uniqueness is enforced by UNIQUE indexes over folded key columns.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_fk=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tags (
			guild_id TEXT NOT NULL,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			content TEXT NOT NULL,
			added_by_id TEXT NOT NULL,
			added_by_tag TEXT NOT NULL,
			added_at DATETIME NOT NULL,
			uses INTEGER NOT NULL DEFAULT 0,
			image BLOB,
			image_type TEXT NOT NULL DEFAULT '',
			UNIQUE (guild_id, name_key)
		);

		CREATE TABLE IF NOT EXISTS filter_words (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			phrase TEXT NOT NULL,
			phrase_key TEXT NOT NULL,
			bypass_level INTEGER NOT NULL,
			notify BOOLEAN NOT NULL,
			piracy BOOLEAN NOT NULL DEFAULT 0,
			UNIQUE (guild_id, phrase_key)
		);

		CREATE TABLE IF NOT EXISTS guild_sets (
			guild_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (guild_id, kind, value)
		);

		CREATE TABLE IF NOT EXISTS role_levels (
			guild_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			PRIMARY KEY (guild_id, role_id)
		);

		CREATE TABLE IF NOT EXISTS channels (
			guild_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			PRIMARY KEY (guild_id, kind)
		);

		CREATE TABLE IF NOT EXISTS user_settings (
			user_id TEXT PRIMARY KEY,
			offline_report_ping BOOLEAN NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS command_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			channel_name TEXT NOT NULL,
			guild_name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			command TEXT NOT NULL,
			param TEXT NOT NULL,
			datetime DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_command_history_guild
			ON command_history(guild_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// affected maps a zero-row write to storage.ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func changed(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Tags

const tagColumns = `name, content, added_by_id, added_by_tag, added_at, uses, image, image_type`

func scanTag(row interface{ Scan(...any) error }) (*storage.Tag, error) {
	var t storage.Tag
	if err := row.Scan(&t.Name, &t.Content, &t.AddedByID, &t.AddedByTag, &t.AddedAt, &t.Uses, &t.Image, &t.ImageType); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) Tags(guildID string) ([]storage.Tag, error) {
	rows, err := s.db.Query(`SELECT `+tagColumns+` FROM tags WHERE guild_id = ? ORDER BY name`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []storage.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

func (s *Store) Tag(guildID, name string) (*storage.Tag, error) {
	row := s.db.QueryRow(`SELECT `+tagColumns+` FROM tags WHERE guild_id = ? AND name_key = ?`, guildID, storage.Fold(name))
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return t, err
}

func (s *Store) AddTag(guildID string, tag storage.Tag) error {
	if tag.AddedAt.IsZero() {
		tag.AddedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO tags (guild_id, name_key, `+tagColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, guildID, storage.Fold(tag.Name), tag.Name, tag.Content, tag.AddedByID, tag.AddedByTag, tag.AddedAt, tag.Uses, tag.Image, tag.ImageType)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	return err
}

func (s *Store) RemoveTag(guildID, name string) error {
	return affected(s.db.Exec(`DELETE FROM tags WHERE guild_id = ? AND name_key = ?`, guildID, storage.Fold(name)))
}

func (s *Store) IncrementTagUses(guildID, name string) (int, error) {
	var uses int
	err := s.db.QueryRow(`
		UPDATE tags SET uses = uses + 1
		WHERE guild_id = ? AND name_key = ?
		RETURNING uses
	`, guildID, storage.Fold(name)).Scan(&uses)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	return uses, err
}

// Filter words

func (s *Store) FilterWords(guildID string) ([]storage.FilterWord, error) {
	rows, err := s.db.Query(`
		SELECT phrase, bypass_level, notify, piracy
		FROM filter_words WHERE guild_id = ? ORDER BY id
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []storage.FilterWord
	for rows.Next() {
		var w storage.FilterWord
		if err := rows.Scan(&w.Phrase, &w.BypassLevel, &w.Notify, &w.Piracy); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

func (s *Store) AddFilterWord(guildID string, word storage.FilterWord) error {
	_, err := s.db.Exec(`
		INSERT INTO filter_words (guild_id, phrase, phrase_key, bypass_level, notify, piracy)
		VALUES (?, ?, ?, ?, ?, ?)
	`, guildID, word.Phrase, storage.Fold(word.Phrase), word.BypassLevel, word.Notify, word.Piracy)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	return err
}

func (s *Store) RemoveFilterWord(guildID, phrase string) error {
	return affected(s.db.Exec(`DELETE FROM filter_words WHERE guild_id = ? AND phrase_key = ?`, guildID, storage.Fold(phrase)))
}

func (s *Store) SetFilterWordPiracy(guildID, phrase string, piracy bool) error {
	return affected(s.db.Exec(`
		UPDATE filter_words SET piracy = ? WHERE guild_id = ? AND phrase_key = ?
	`, piracy, guildID, storage.Fold(phrase)))
}

// Guild sets

const (
	setWhitelist = "whitelist"
	setIgnored   = "ignored_channel"
)

func (s *Store) members(guildID, kind string) ([]string, error) {
	rows, err := s.db.Query(`SELECT value FROM guild_sets WHERE guild_id = ? AND kind = ? ORDER BY rowid`, guildID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) addMember(guildID, kind, value string) (bool, error) {
	return changed(s.db.Exec(`INSERT OR IGNORE INTO guild_sets (guild_id, kind, value) VALUES (?, ?, ?)`, guildID, kind, value))
}

func (s *Store) removeMember(guildID, kind, value string) (bool, error) {
	return changed(s.db.Exec(`DELETE FROM guild_sets WHERE guild_id = ? AND kind = ? AND value = ?`, guildID, kind, value))
}

func (s *Store) WhitelistedGuilds(guildID string) ([]string, error) {
	return s.members(guildID, setWhitelist)
}

func (s *Store) AddWhitelistedGuild(guildID, targetID string) (bool, error) {
	return s.addMember(guildID, setWhitelist, targetID)
}

func (s *Store) RemoveWhitelistedGuild(guildID, targetID string) (bool, error) {
	return s.removeMember(guildID, setWhitelist, targetID)
}

func (s *Store) IgnoredChannels(guildID string) ([]string, error) {
	return s.members(guildID, setIgnored)
}

func (s *Store) AddIgnoredChannel(guildID, channelID string) (bool, error) {
	return s.addMember(guildID, setIgnored, channelID)
}

func (s *Store) RemoveIgnoredChannel(guildID, channelID string) (bool, error) {
	return s.removeMember(guildID, setIgnored, channelID)
}

// Settings

func (s *Store) RoleLevels(guildID string) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT role_id, level FROM role_levels WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := map[string]int{}
	for rows.Next() {
		var roleID string
		var level int
		if err := rows.Scan(&roleID, &level); err != nil {
			return nil, err
		}
		levels[roleID] = level
	}
	return levels, rows.Err()
}

func (s *Store) SetRoleLevel(guildID, roleID string, level int) error {
	if level <= 0 {
		_, err := s.db.Exec(`DELETE FROM role_levels WHERE guild_id = ? AND role_id = ?`, guildID, roleID)
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO role_levels (guild_id, role_id, level) VALUES (?, ?, ?)
		ON CONFLICT(guild_id, role_id) DO UPDATE SET level = excluded.level
	`, guildID, roleID, level)
	return err
}

func (s *Store) Channel(guildID, kind string) (string, error) {
	var channelID string
	err := s.db.QueryRow(`SELECT channel_id FROM channels WHERE guild_id = ? AND kind = ?`, guildID, kind).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return channelID, err
}

func (s *Store) SetChannel(guildID, kind, channelID string) error {
	if channelID == "" {
		_, err := s.db.Exec(`DELETE FROM channels WHERE guild_id = ? AND kind = ?`, guildID, kind)
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO channels (guild_id, kind, channel_id) VALUES (?, ?, ?)
		ON CONFLICT(guild_id, kind) DO UPDATE SET channel_id = excluded.channel_id
	`, guildID, kind, channelID)
	return err
}

func (s *Store) OfflineReportPing(userID string) (bool, error) {
	var enabled bool
	err := s.db.QueryRow(`SELECT offline_report_ping FROM user_settings WHERE user_id = ?`, userID).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return enabled, err
}

func (s *Store) SetOfflineReportPing(userID string, enabled bool) error {
	_, err := s.db.Exec(`
		INSERT INTO user_settings (user_id, offline_report_ping) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET offline_report_ping = excluded.offline_report_ping
	`, userID, enabled)
	return err
}

// Command history

func (s *Store) AppendCommandToHistory(guildID string, r storage.CommandHistoryRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO command_history (guild_id, channel_id, channel_name, guild_name, user_id, username, command, param, datetime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, guildID, r.ChannelID, r.ChannelName, r.GuildName, r.UserID, r.Username, r.Command, r.Param, r.Datetime); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		DELETE FROM command_history WHERE guild_id = ? AND id NOT IN (
			SELECT id FROM command_history WHERE guild_id = ? ORDER BY id DESC LIMIT ?
		)
	`, guildID, guildID, historyLimit); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) FetchCommandHistory(guildID string) ([]storage.CommandHistoryRecord, error) {
	rows, err := s.db.Query(`
		SELECT channel_id, channel_name, guild_name, user_id, username, command, param, datetime
		FROM command_history WHERE guild_id = ? ORDER BY id
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.CommandHistoryRecord
	for rows.Next() {
		var r storage.CommandHistoryRecord
		if err := rows.Scan(&r.ChannelID, &r.ChannelName, &r.GuildName, &r.UserID, &r.Username, &r.Command, &r.Param, &r.Datetime); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
