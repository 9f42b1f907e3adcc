package paginator

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Surface is the slice of the messaging platform a menu needs.
type Surface interface {
	SendEmbed(channelID string, e *discordgo.MessageEmbed) (messageID string, err error)
	EditEmbed(channelID, messageID string, e *discordgo.MessageEmbed) error
	AddReaction(channelID, messageID, emoji string) error
	// RemoveReaction removes userID's reaction; "@me" is the bot itself.
	// A refusal for missing permissions must wrap ErrPermission.
	RemoveReaction(channelID, messageID, emoji, userID string) error
	ClearReactions(channelID, messageID string) error
	CanManageMessages(channelID string) bool
}

// Action is a navigation affordance.
type Action int

const (
	ActionFirst Action = iota
	ActionPrevious
	ActionNext
	ActionLast
	ActionStop
)

// Affordances are the navigation reactions, in the order they are attached.
var Affordances = []string{"⏮️", "◀️", "▶️", "⏭️", "⏹️"}

// ActionFor maps a reaction emoji to its navigation action.
func ActionFor(emoji string) (Action, bool) {
	for i, a := range Affordances {
		if a == emoji {
			return Action(i), true
		}
	}
	return 0, false
}

func (a Action) String() string {
	switch a {
	case ActionFirst:
		return "first"
	case ActionPrevious:
		return "previous"
	case ActionNext:
		return "next"
	case ActionLast:
		return "last"
	case ActionStop:
		return "stop"
	}
	return "unknown"
}

// Target computes the page an action leads to. Stop returns current.
func (a Action) Target(current, count int) int {
	switch a {
	case ActionFirst:
		return 0
	case ActionPrevious:
		return max(0, current-1)
	case ActionNext:
		return min(count-1, current+1)
	case ActionLast:
		return count - 1
	}
	return current
}

// State of a menu session.
type State int

const (
	StateStarting State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// CloseReason records why a session ended.
type CloseReason string

const (
	CloseNone       CloseReason = ""
	CloseSinglePage CloseReason = "single_page"
	CloseStopped    CloseReason = "stopped"
	CloseTimeout    CloseReason = "timeout"
	CloseDeleted    CloseReason = "deleted"
	CloseFailed     CloseReason = "failed"
	CloseShutdown   CloseReason = "shutdown"
)

// ReactionEvent is a reaction add or remove scoped to one message.
type ReactionEvent struct {
	MessageID string
	UserID    string
	Emoji     string
	Added     bool
	Bot       bool
}

type outcome int

const (
	ignored outcome = iota
	pressed
	closed
)

// Session is the live state of one paginated message. Only its own
// goroutine mutates the page index; getters are safe from anywhere.
type Session struct {
	manager   *Manager
	source    Source
	channelID string
	messageID string
	ownerID   string
	pageCount int
	log       *slog.Logger

	events  chan ReactionEvent
	deleted chan struct{}
	done    chan struct{}

	mu           sync.RWMutex
	state        State
	current      int
	degraded     bool
	lastActivity time.Time
	reason       CloseReason
}

func (s *Session) ChannelID() string { return s.channelID }
func (s *Session) MessageID() string { return s.messageID }
func (s *Session) OwnerID() string   { return s.ownerID }
func (s *Session) PageCount() int    { return s.pageCount }

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Current() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Degraded reports whether user reactions are left in place because the
// bot may not remove them.
func (s *Session) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *Session) CloseReason() CloseReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

func (s *Session) deliver(ev ReactionEvent) {
	select {
	case s.events <- ev:
	default:
		DroppedEvents.Inc()
		s.log.Warn("menu event queue full, dropping reaction", "emoji", ev.Emoji, "user", ev.UserID)
	}
}

func (s *Session) markDeleted() {
	select {
	case s.deleted <- struct{}{}:
	default:
	}
}

func (s *Session) run(stop <-chan struct{}, idle time.Duration) {
	defer close(s.done)

	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			s.strip()
			s.finish(CloseShutdown)
			return
		case <-s.deleted:
			s.finish(CloseDeleted)
			return
		case <-timer.C:
			s.strip()
			s.finish(CloseTimeout)
			return
		case ev := <-s.events:
			switch s.handle(ev) {
			case pressed:
				timer.Reset(idle)
			case closed:
				return
			}
		}
	}
}

// accepts reports whether ev is a press by the owner on an affordance.
// Removals only navigate when presses cannot be reset.
func (s *Session) accepts(ev ReactionEvent) bool {
	if ev.Bot || ev.UserID != s.ownerID {
		return false
	}
	if _, ok := ActionFor(ev.Emoji); !ok {
		return false
	}
	return ev.Added || s.Degraded()
}

func (s *Session) handle(ev ReactionEvent) outcome {
	if !s.accepts(ev) {
		return ignored
	}
	action, _ := ActionFor(ev.Emoji)

	if ev.Added && !s.Degraded() {
		err := s.manager.surface.RemoveReaction(s.channelID, s.messageID, ev.Emoji, ev.UserID)
		switch {
		case err == nil:
		case errors.Is(err, ErrPermission):
			s.mu.Lock()
			s.degraded = true
			s.mu.Unlock()
			s.log.Info("cannot remove reactions, leaving them in place")
		default:
			s.log.Warn("failed to reset navigation reaction", "error", err)
			s.finish(CloseFailed)
			return closed
		}
	}

	s.mu.Lock()
	s.lastActivity = s.manager.now()
	current := s.current
	s.mu.Unlock()

	if action == ActionStop {
		Navigations.WithLabelValues(action.String()).Inc()
		s.strip()
		s.finish(CloseStopped)
		return closed
	}

	next := action.Target(current, s.pageCount)
	if next == current {
		return pressed
	}

	e, err := s.source.Render(next)
	if err != nil {
		s.log.Error("failed to render menu page", "page", next, "error", err)
		s.finish(CloseFailed)
		return closed
	}
	if err := s.manager.surface.EditEmbed(s.channelID, s.messageID, e); err != nil {
		s.log.Warn("failed to edit menu message", "error", err)
		s.finish(CloseFailed)
		return closed
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	Navigations.WithLabelValues(action.String()).Inc()
	return pressed
}

// strip removes the navigation affordances, best effort.
func (s *Session) strip() {
	surface := s.manager.surface
	if !s.Degraded() {
		err := surface.ClearReactions(s.channelID, s.messageID)
		if err == nil {
			return
		}
		s.log.Debug("failed to clear reactions, removing own", "error", err)
	}
	for _, emoji := range Affordances {
		if err := surface.RemoveReaction(s.channelID, s.messageID, emoji, "@me"); err != nil {
			s.log.Debug("failed to remove navigation reaction", "emoji", emoji, "error", err)
		}
	}
}

func (s *Session) finish(reason CloseReason) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	wasActive := s.state == StateActive
	s.state = StateClosed
	s.reason = reason
	s.mu.Unlock()

	s.manager.remove(s.messageID)
	if wasActive {
		ActiveSessions.Dec()
	}
	SessionsClosed.WithLabelValues(string(reason)).Inc()
	s.log.Debug("menu session closed", "reason", reason)
}
