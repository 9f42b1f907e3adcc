// Package commandtest provides recording fakes for command tests.
package commandtest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/fetch"
	"github.com/keshon/tagwarden/internal/paginator"
	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/internal/storage"
	"github.com/keshon/tagwarden/pkg/cmd"
	"github.com/stretchr/testify/require"
)

// Sent is one recorded outbound message.
type Sent struct {
	ChannelID string
	MessageID string
	Embed     *discordgo.MessageEmbed
	Files     map[string][]byte
}

// Deletion is one recorded delete request.
type Deletion struct {
	ChannelID string
	MessageID string
	After     time.Duration
}

// Messenger records everything a command sends or deletes.
type Messenger struct {
	mu      sync.Mutex
	next    int
	sent    []Sent
	deleted []Deletion
	SendErr error
}

func (m *Messenger) SendEmbed(channelID string, e *discordgo.MessageEmbed, files ...*discordgo.File) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return "", m.SendErr
	}
	m.next++
	s := Sent{ChannelID: channelID, MessageID: fmt.Sprintf("reply-%d", m.next), Embed: e, Files: map[string][]byte{}}
	for _, f := range files {
		data, _ := io.ReadAll(f.Reader)
		s.Files[f.Name] = data
	}
	m.sent = append(m.sent, s)
	return s.MessageID, nil
}

func (m *Messenger) DeleteAfter(channelID, messageID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, Deletion{ChannelID: channelID, MessageID: messageID, After: d})
}

// Sent returns a copy of the recorded messages.
func (m *Messenger) Sent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sent(nil), m.sent...)
}

// Last returns the most recent message or nil.
func (m *Messenger) Last() *Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	s := m.sent[len(m.sent)-1]
	return &s
}

// Deleted returns a copy of the recorded deletions.
func (m *Messenger) Deleted() []Deletion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Deletion(nil), m.deleted...)
}

// DeletedMessage reports the delay a message was scheduled for deletion with.
func (m *Messenger) DeletedMessage(messageID string) (time.Duration, bool) {
	for _, d := range m.Deleted() {
		if d.MessageID == messageID {
			return d.After, true
		}
	}
	return 0, false
}

// Menus records started menus instead of posting them.
type Menus struct {
	mu      sync.Mutex
	Started []StartedMenu
	Err     error
}

// StartedMenu is one recorded Start call.
type StartedMenu struct {
	Source    paginator.Source
	ChannelID string
	OwnerID   string
}

func (m *Menus) Start(src paginator.Source, channelID, ownerID string) (*paginator.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if src.PageCount() == 0 {
		return nil, paginator.ErrEmptyCollection
	}
	m.Started = append(m.Started, StartedMenu{Source: src, ChannelID: channelID, OwnerID: ownerID})
	return nil, nil
}

// Fetcher serves images from a map keyed by URL.
type Fetcher struct {
	Images map[string]*fetch.Image
	Err    error
	Calls  int
}

func (f *Fetcher) Image(ctx context.Context, url string) (*fetch.Image, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	img, ok := f.Images[url]
	if !ok {
		return nil, fetch.ErrNotImage
	}
	return img, nil
}

// Levels resolves levels from a fixed user -> level map.
type Levels map[string]permission.Level

func (l Levels) Level(guildID, userID string) (permission.Level, error) {
	return l[userID], nil
}

// Gate returns a gate over the given levels.
func Gate(levels Levels) *permission.Gate {
	return permission.NewGate(levels, nil)
}

const (
	GuildID   = "guild-1"
	ChannelID = "chan-1"
	TriggerID = "trigger-1"
)

// Message builds a guild message context from userID with args.
func Message(userID string, args ...string) *command.MessageContext {
	return &command.MessageContext{
		Event: &discordgo.MessageCreate{Message: &discordgo.Message{
			ID:        TriggerID,
			GuildID:   GuildID,
			ChannelID: ChannelID,
			Author:    &discordgo.User{ID: userID, Username: userID},
		}},
		Args: args,
	}
}

// WithAttachment adds an attachment URL to mc.
func WithAttachment(mc *command.MessageContext, url string) *command.MessageContext {
	mc.Event.Attachments = append(mc.Event.Attachments, &discordgo.MessageAttachment{URL: url, Filename: "upload.png"})
	return mc
}

// RegisterFunc matches the Register function of each command package.
type RegisterFunc func(r *cmd.Registry, deps *command.Deps, mws ...cmd.Middleware) error

// Harness wires a command package to fakes and the production middleware
// chain.
type Harness struct {
	Deps      *command.Deps
	Registry  *cmd.Registry
	Messenger *Messenger
	Menus     *Menus
	Fetcher   *Fetcher
	Profile   *Profile
}

// NewHarness registers a command package against store and levels.
func NewHarness(t testing.TB, store storage.Store, levels Levels, register RegisterFunc) *Harness {
	t.Helper()
	h := &Harness{
		Registry:  cmd.NewRegistry(),
		Messenger: &Messenger{},
		Menus:     &Menus{},
		Fetcher:   &Fetcher{Images: map[string]*fetch.Image{}},
		Profile:   &Profile{},
	}
	h.Deps = &command.Deps{
		Store:     store,
		Gate:      Gate(levels),
		Messenger: h.Messenger,
		Menus:     h.Menus,
		Fetcher:   h.Fetcher,
		Profile:   h.Profile,
	}
	err := register(h.Registry, h.Deps,
		command.WithGuildOnly(),
		command.WithCommandLogger(store, nil),
		command.WithPermissionLevel(h.Deps.Gate),
	)
	require.NoError(t, err)
	return h
}

// Run dispatches the message as the named command.
func (h *Harness) Run(mc *command.MessageContext, name string) bool {
	return command.Dispatch(context.Background(), h.Registry, h.Deps, mc, name)
}

// LastText is the description of the last sent embed, or "".
func (h *Harness) LastText() string {
	if last := h.Messenger.Last(); last != nil {
		return last.Embed.Description
	}
	return ""
}

// Profile records avatar changes.
type Profile struct {
	mu      sync.Mutex
	Avatars []*fetch.Image
	Err     error
}

func (p *Profile) SetAvatar(ctx context.Context, img *fetch.Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Avatars = append(p.Avatars, img)
	return nil
}

// StoreSpy passes reads through to Store and records every write. Writes
// reach Store only when Passthrough is set.
type StoreSpy struct {
	storage.Store
	Passthrough bool

	mu     sync.Mutex
	writes []string
}

// Writes lists the recorded writes as "Method:key".
func (s *StoreSpy) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

func (s *StoreSpy) record(method, key string) bool {
	s.mu.Lock()
	s.writes = append(s.writes, method+":"+key)
	s.mu.Unlock()
	return s.Passthrough
}

func (s *StoreSpy) AddTag(guildID string, tag storage.Tag) error {
	if !s.record("AddTag", tag.Name) {
		return nil
	}
	return s.Store.AddTag(guildID, tag)
}

func (s *StoreSpy) RemoveTag(guildID, name string) error {
	if !s.record("RemoveTag", name) {
		return nil
	}
	return s.Store.RemoveTag(guildID, name)
}

func (s *StoreSpy) IncrementTagUses(guildID, name string) (int, error) {
	if !s.record("IncrementTagUses", name) {
		return 0, nil
	}
	return s.Store.IncrementTagUses(guildID, name)
}

func (s *StoreSpy) AddFilterWord(guildID string, word storage.FilterWord) error {
	if !s.record("AddFilterWord", word.Phrase) {
		return nil
	}
	return s.Store.AddFilterWord(guildID, word)
}

func (s *StoreSpy) RemoveFilterWord(guildID, phrase string) error {
	if !s.record("RemoveFilterWord", phrase) {
		return nil
	}
	return s.Store.RemoveFilterWord(guildID, phrase)
}

func (s *StoreSpy) SetFilterWordPiracy(guildID, phrase string, piracy bool) error {
	if !s.record("SetFilterWordPiracy", phrase) {
		return nil
	}
	return s.Store.SetFilterWordPiracy(guildID, phrase, piracy)
}

func (s *StoreSpy) AddWhitelistedGuild(guildID, targetID string) (bool, error) {
	if !s.record("AddWhitelistedGuild", targetID) {
		return false, nil
	}
	return s.Store.AddWhitelistedGuild(guildID, targetID)
}

func (s *StoreSpy) RemoveWhitelistedGuild(guildID, targetID string) (bool, error) {
	if !s.record("RemoveWhitelistedGuild", targetID) {
		return false, nil
	}
	return s.Store.RemoveWhitelistedGuild(guildID, targetID)
}

func (s *StoreSpy) AddIgnoredChannel(guildID, channelID string) (bool, error) {
	if !s.record("AddIgnoredChannel", channelID) {
		return false, nil
	}
	return s.Store.AddIgnoredChannel(guildID, channelID)
}

func (s *StoreSpy) RemoveIgnoredChannel(guildID, channelID string) (bool, error) {
	if !s.record("RemoveIgnoredChannel", channelID) {
		return false, nil
	}
	return s.Store.RemoveIgnoredChannel(guildID, channelID)
}

func (s *StoreSpy) SetRoleLevel(guildID, roleID string, level int) error {
	if !s.record("SetRoleLevel", roleID) {
		return nil
	}
	return s.Store.SetRoleLevel(guildID, roleID, level)
}

func (s *StoreSpy) SetChannel(guildID, kind, channelID string) error {
	if !s.record("SetChannel", kind) {
		return nil
	}
	return s.Store.SetChannel(guildID, kind, channelID)
}

func (s *StoreSpy) SetOfflineReportPing(userID string, enabled bool) error {
	if !s.record("SetOfflineReportPing", userID) {
		return nil
	}
	return s.Store.SetOfflineReportPing(userID, enabled)
}

func (s *StoreSpy) AppendCommandToHistory(guildID string, rec storage.CommandHistoryRecord) error {
	if !s.record("AppendCommandToHistory", rec.Command) {
		return nil
	}
	return s.Store.AppendCommandToHistory(guildID, rec)
}
