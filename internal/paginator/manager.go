package paginator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultIdleTimeout closes a menu nobody touched for this long.
	DefaultIdleTimeout = 3 * time.Minute

	eventQueueSize = 32
)

// Option configures a Manager.
type Option func(*Manager)

// WithIdleTimeout sets how long a session waits for a press.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.idle = d
		}
	}
}

// WithLogger sets the logger; sessions log with message attributes.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock overrides time.Now for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager owns every live menu session and routes reaction events to the
// session that owns the reacted message.
type Manager struct {
	surface Surface
	idle    time.Duration
	log     *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	stop     chan struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// NewManager returns a Manager posting through surface.
func NewManager(surface Surface, opts ...Option) *Manager {
	m := &Manager{
		surface:  surface,
		idle:     DefaultIdleTimeout,
		log:      slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start posts page 0 of src to channelID and, when there is more than one
// page, attaches the navigation affordances and starts listening for
// presses by ownerID.
func (m *Manager) Start(src Source, channelID, ownerID string) (*Session, error) {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		return nil, ErrManagerClosed
	}

	count := src.PageCount()
	if count == 0 {
		return nil, ErrEmptyCollection
	}

	first, err := src.Render(0)
	if err != nil {
		return nil, err
	}
	messageID, err := m.surface.SendEmbed(channelID, first)
	if err != nil {
		return nil, fmt.Errorf("send first page: %w", err)
	}

	s := &Session{
		manager:      m,
		source:       src,
		channelID:    channelID,
		messageID:    messageID,
		ownerID:      ownerID,
		pageCount:    count,
		log:          m.log.With("channel", channelID, "message", messageID),
		events:       make(chan ReactionEvent, eventQueueSize),
		deleted:      make(chan struct{}, 1),
		done:         make(chan struct{}),
		state:        StateStarting,
		lastActivity: m.now(),
	}

	if count == 1 {
		s.state = StateClosed
		s.reason = CloseSinglePage
		close(s.done)
		return s, nil
	}

	s.degraded = !m.surface.CanManageMessages(channelID)

	// Registered before the reactions go up so early presses are queued.
	m.mu.Lock()
	m.sessions[messageID] = s
	m.mu.Unlock()

	for _, emoji := range Affordances {
		if err := m.surface.AddReaction(channelID, messageID, emoji); err != nil {
			s.finish(CloseFailed)
			close(s.done)
			return s, fmt.Errorf("add navigation reaction %s: %w", emoji, err)
		}
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		s.strip()
		s.finish(CloseShutdown)
		close(s.done)
		return s, ErrManagerClosed
	}
	m.wg.Add(1)
	m.mu.Unlock()

	s.mu.Lock()
	s.state = StateActive
	s.mu.Unlock()
	ActiveSessions.Inc()

	go func() {
		defer m.wg.Done()
		s.run(m.stop, m.idle)
	}()

	s.log.Debug("menu session started", "pages", count, "owner", ownerID, "degraded", s.degraded)
	return s, nil
}

// HandleReaction routes ev to the session owning its message. It never
// blocks and reports whether a session took the event. Events the session
// would ignore are dropped here so they cannot fill its queue.
func (m *Manager) HandleReaction(ev ReactionEvent) bool {
	s, ok := m.Session(ev.MessageID)
	if !ok || !s.accepts(ev) {
		return false
	}
	s.deliver(ev)
	return true
}

// HandleMessageDelete closes the session of a message deleted elsewhere.
func (m *Manager) HandleMessageDelete(messageID string) {
	if s, ok := m.Session(messageID); ok {
		s.markDeleted()
	}
}

// Session looks up the live session for messageID.
func (m *Manager) Session(messageID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[messageID]
	return s, ok
}

// Active is the number of registered sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session and waits for their goroutines.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if !m.stopped {
		m.stopped = true
		close(m.stop)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) remove(messageID string) {
	m.mu.Lock()
	delete(m.sessions, messageID)
	m.mu.Unlock()
}
