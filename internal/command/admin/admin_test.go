package admin_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/keshon/tagwarden/internal/command/admin"
	"github.com/keshon/tagwarden/internal/command/commandtest"
	"github.com/keshon/tagwarden/internal/command/filter"
	"github.com/keshon/tagwarden/internal/command/tags"
	"github.com/keshon/tagwarden/internal/fetch"
	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var levels = commandtest.Levels{
	"member": permission.Everyone,
	"admin":  permission.Administrator,
	"owner":  permission.GuildOwner,
}

func newHarness(t *testing.T) *commandtest.Harness {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "db.json"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return commandtest.NewHarness(t, store, levels, admin.Register)
}

func TestSetAvatar(t *testing.T) {
	h := newHarness(t)
	img := &fetch.Image{Data: []byte("PNG"), ContentType: "image/png"}
	h.Fetcher.Images["https://cdn/pfp.png"] = img

	h.Run(commandtest.WithAttachment(commandtest.Message("owner"), "https://cdn/pfp.png"), "setpfp")

	require.Len(t, h.Profile.Avatars, 1)
	assert.Same(t, img, h.Profile.Avatars[0])
	assert.Equal(t, "Done!", h.LastText())
	after, ok := h.Messenger.DeletedMessage(h.Messenger.Last().MessageID)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, after)
}

func TestSetAvatar_Rejections(t *testing.T) {
	t.Run("below guild owner", func(t *testing.T) {
		h := newHarness(t)
		h.Run(commandtest.WithAttachment(commandtest.Message("admin"), "https://cdn/pfp.png"), "setpfp")
		assert.Equal(t, "You do not have permission to use this command.", h.LastText())
		assert.Zero(t, h.Fetcher.Calls)
		assert.Empty(t, h.Profile.Avatars)
	})

	t.Run("no attachment", func(t *testing.T) {
		h := newHarness(t)
		h.Run(commandtest.Message("owner"), "setpfp")
		assert.Equal(t, "Please attach an image to use as the profile picture.", h.LastText())
	})

	t.Run("not an image", func(t *testing.T) {
		h := newHarness(t)
		h.Run(commandtest.WithAttachment(commandtest.Message("owner"), "https://cdn/notes.txt"), "setpfp")
		assert.Equal(t, "Attached file was not an image.", h.LastText())
		assert.Empty(t, h.Profile.Avatars)
	})

	t.Run("platform failure", func(t *testing.T) {
		h := newHarness(t)
		h.Fetcher.Images["https://cdn/pfp.png"] = &fetch.Image{Data: []byte("PNG"), ContentType: "image/png"}
		h.Profile.Err = errors.New("rate limited")
		h.Run(commandtest.WithAttachment(commandtest.Message("owner"), "https://cdn/pfp.png"), "setpfp")
		assert.Equal(t, "A fatal error occurred.", h.LastText())
	})
}

func TestHelp_ShowsOnlyRunnableCommands(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, tags.Register(h.Registry, h.Deps))
	require.NoError(t, filter.Register(h.Registry, h.Deps))

	h.Run(commandtest.Message("member"), "help")
	text := h.LastText()
	assert.Contains(t, text, "`tag` (t)")
	assert.Contains(t, text, "`help`")
	assert.NotContains(t, text, "`addtag`")
	assert.NotContains(t, text, "`setpfp`")
	assert.Equal(t, "Your level: Everyone", h.Messenger.Last().Embed.Footer.Text)

	h.Run(commandtest.Message("admin"), "commands")
	text = h.LastText()
	assert.Contains(t, text, "`filterlist`")
	assert.Contains(t, text, "`addtag` (addt)")
	assert.NotContains(t, text, "`setpfp`")
	assert.Less(t, strings.Index(text, "**Information**"), strings.Index(text, "**Tags**"))
	assert.Less(t, strings.Index(text, "**Tags**"), strings.Index(text, "**Filter**"))
}
