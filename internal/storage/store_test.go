package storage_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/keshon/tagwarden/internal/storage"
	"github.com/keshon/tagwarden/internal/storage/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guild = "guild-1"

func backends(t *testing.T) map[string]func(t *testing.T) storage.Store {
	return map[string]func(t *testing.T) storage.Store{
		"json": func(t *testing.T) storage.Store {
			s, err := storage.New(filepath.Join(t.TempDir(), "store.json"), nil)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"sqlite": func(t *testing.T) storage.Store {
			s, err := sqlstore.Open(filepath.Join(t.TempDir(), "store.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s storage.Store)) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) { fn(t, open(t)) })
	}
}

func newTag(name string) storage.Tag {
	return storage.Tag{
		Name:       name,
		Content:    "content of " + name,
		AddedByID:  "u1",
		AddedByTag: "someone#0001",
		AddedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_TagLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Store) {
		require.NoError(t, s.AddTag(guild, newTag("roblox")))
		require.NoError(t, s.AddTag(guild, newTag("apple")))

		assert.ErrorIs(t, s.AddTag(guild, newTag("Roblox")), storage.ErrDuplicate)
		require.NoError(t, s.AddTag("other-guild", newTag("roblox")), "uniqueness is per guild")

		tags, err := s.Tags(guild)
		require.NoError(t, err)
		require.Len(t, tags, 2)
		assert.Equal(t, "apple", tags[0].Name)
		assert.Equal(t, "roblox", tags[1].Name)

		tag, err := s.Tag(guild, "ROBLOX")
		require.NoError(t, err)
		assert.Equal(t, "content of roblox", tag.Content)
		assert.False(t, tag.HasImage())

		uses, err := s.IncrementTagUses(guild, "roblox")
		require.NoError(t, err)
		assert.Equal(t, 1, uses)
		uses, err = s.IncrementTagUses(guild, "roblox")
		require.NoError(t, err)
		assert.Equal(t, 2, uses)

		require.NoError(t, s.RemoveTag(guild, "Roblox"))
		_, err = s.Tag(guild, "roblox")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, s.RemoveTag(guild, "roblox"), storage.ErrNotFound)
		_, err = s.IncrementTagUses(guild, "roblox")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestStore_TagImage(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Store) {
		tag := newTag("pic")
		tag.Image = []byte{0x89, 'P', 'N', 'G'}
		tag.ImageType = "image/png"
		require.NoError(t, s.AddTag(guild, tag))

		got, err := s.Tag(guild, "pic")
		require.NoError(t, err)
		assert.True(t, got.HasImage())
		assert.Equal(t, tag.Image, got.Image)
		assert.Equal(t, "image/png", got.ImageType)
	})
}

func TestStore_ConcurrentDuplicateAdds(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Store) {
		var wg sync.WaitGroup
		errs := make([]error, 10)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name := "race"
				if i%2 == 1 {
					name = "RACE"
				}
				errs[i] = s.AddTag(guild, newTag(name))
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, storage.ErrDuplicate)
			}
		}
		assert.Equal(t, 1, ok)
	})
}

func TestStore_FilterWords(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Store) {
		require.NoError(t, s.AddFilterWord(guild, storage.FilterWord{Phrase: "free nitro", BypassLevel: 5, Notify: true}))
		require.NoError(t, s.AddFilterWord(guild, storage.FilterWord{Phrase: "crack", BypassLevel: 4}))
		assert.ErrorIs(t, s.AddFilterWord(guild, storage.FilterWord{Phrase: "Free Nitro"}), storage.ErrDuplicate)

		require.NoError(t, s.SetFilterWordPiracy(guild, "CRACK", true))
		assert.ErrorIs(t, s.SetFilterWordPiracy(guild, "missing", true), storage.ErrNotFound)

		words, err := s.FilterWords(guild)
		require.NoError(t, err)
		require.Len(t, words, 2)
		assert.Equal(t, storage.FilterWord{Phrase: "free nitro", BypassLevel: 5, Notify: true}, words[0])
		assert.Equal(t, storage.FilterWord{Phrase: "crack", BypassLevel: 4, Piracy: true}, words[1])

		require.NoError(t, s.RemoveFilterWord(guild, "free NITRO"))
		assert.ErrorIs(t, s.RemoveFilterWord(guild, "free nitro"), storage.ErrNotFound)
		words, err = s.FilterWords(guild)
		require.NoError(t, err)
		assert.Len(t, words, 1)
	})
}

func TestStore_Sets(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Store) {
		added, err := s.AddWhitelistedGuild(guild, "g2")
		require.NoError(t, err)
		assert.True(t, added)
		added, err = s.AddWhitelistedGuild(guild, "g2")
		require.NoError(t, err)
		assert.False(t, added)

		ids, err := s.WhitelistedGuilds(guild)
		require.NoError(t, err)
		assert.Equal(t, []string{"g2"}, ids)

		removed, err := s.RemoveWhitelistedGuild(guild, "g2")
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = s.RemoveWhitelistedGuild(guild, "g2")
		require.NoError(t, err)
		assert.False(t, removed)

		added, err = s.AddIgnoredChannel(guild, "c1")
		require.NoError(t, err)
		assert.True(t, added)
		channels, err := s.IgnoredChannels(guild)
		require.NoError(t, err)
		assert.Equal(t, []string{"c1"}, channels)
		removed, err = s.RemoveIgnoredChannel(guild, "c1")
		require.NoError(t, err)
		assert.True(t, removed)
	})
}

func TestStore_Settings(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Store) {
		levels, err := s.RoleLevels(guild)
		require.NoError(t, err)
		assert.Empty(t, levels)

		require.NoError(t, s.SetRoleLevel(guild, "r1", 4))
		require.NoError(t, s.SetRoleLevel(guild, "r2", 6))
		require.NoError(t, s.SetRoleLevel(guild, "r1", 5))
		require.NoError(t, s.SetRoleLevel(guild, "r2", 0))
		levels, err = s.RoleLevels(guild)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"r1": 5}, levels)

		ch, err := s.Channel(guild, storage.ChannelBotSpam)
		require.NoError(t, err)
		assert.Empty(t, ch)
		require.NoError(t, s.SetChannel(guild, storage.ChannelBotSpam, "c9"))
		ch, err = s.Channel(guild, storage.ChannelBotSpam)
		require.NoError(t, err)
		assert.Equal(t, "c9", ch)

		on, err := s.OfflineReportPing("u1")
		require.NoError(t, err)
		assert.False(t, on)
		require.NoError(t, s.SetOfflineReportPing("u1", true))
		on, err = s.OfflineReportPing("u1")
		require.NoError(t, err)
		assert.True(t, on)
	})
}

func TestStore_CommandHistoryIsBounded(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Store) {
		for i := 0; i < 25; i++ {
			require.NoError(t, s.AppendCommandToHistory(guild, storage.CommandHistoryRecord{
				UserID:   "u1",
				Command:  fmt.Sprintf("cmd-%d", i),
				Datetime: time.Now().UTC(),
			}))
		}
		history, err := s.FetchCommandHistory(guild)
		require.NoError(t, err)
		require.Len(t, history, 20)
		assert.Equal(t, "cmd-5", history[0].Command)
		assert.Equal(t, "cmd-24", history[19].Command)
	})
}

func TestFold(t *testing.T) {
	assert.Equal(t, storage.Fold("Roblox"), storage.Fold("rOBLOX "))
}
