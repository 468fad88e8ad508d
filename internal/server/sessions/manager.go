// Package sessions keeps the live leafmap sessions of a server, keyed by
// the id the browser connects with.
package sessions

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/logging"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID checks that id can name a session in a URL path.
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return errors.NewValidationError("id", id, "session id must be 1-128 characters of letters, digits, '.', '_' or '-'")
	}
	return nil
}

type entry struct {
	session    leafmap.Session
	detachedAt time.Time
}

// Manager owns the sessions of a server.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool

	opts   []leafmap.Option
	onNew  []func(leafmap.Session)
	onGone []func(id string)
	logger *zerolog.Logger
	now    func() time.Time
}

// NewManager creates a manager; opts apply to every session it creates.
func NewManager(logger *zerolog.Logger, opts ...leafmap.Option) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		opts:     opts,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
}

// OnCreate registers fn to run for each new session before it is
// returned to the caller that created it.
func (m *Manager) OnCreate(fn func(leafmap.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNew = append(m.onNew, fn)
}

// OnRemove registers fn to run after a session is closed by Remove or
// Sweep.
func (m *Manager) OnRemove(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onGone = append(m.onGone, fn)
}

func (m *Manager) removed(id string) {
	m.mu.Lock()
	callbacks := append([]func(string){}, m.onGone...)
	m.mu.Unlock()
	for _, fn := range callbacks {
		fn(id)
	}
}

// GetOrCreate returns the session with id, creating it when absent. The
// bool reports whether it was created.
func (m *Manager) GetOrCreate(id string) (leafmap.Session, bool, error) {
	if err := ValidateID(id); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, errors.ErrClosed
	}
	if e, ok := m.sessions[id]; ok {
		return e.session, false, nil
	}

	opts := append(append([]leafmap.Option{}, m.opts...), leafmap.WithID(id))
	s, err := leafmap.New(opts...)
	if err != nil {
		return nil, false, errors.WrapResource("create", "session", id, err)
	}
	e := &entry{session: s, detachedAt: m.now()}
	m.sessions[id] = e

	s.OnAttached(func(id string) { m.markDetached(id, time.Time{}) })
	s.OnDetached(func(id string) { m.markDetached(id, m.now()) })
	for _, fn := range m.onNew {
		fn(s)
	}

	m.logger.Info().Str("session_id", id).Int("sessions", len(m.sessions)).Msg("Session created")
	return s, true, nil
}

func (m *Manager) markDetached(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		e.detachedAt = at
	}
}

// Get returns the session with id.
func (m *Manager) Get(id string) (leafmap.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}
	return e.session, nil
}

// List returns session infos sorted by id.
func (m *Manager) List() []leafmap.Info {
	m.mu.Lock()
	all := make([]leafmap.Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		all = append(all, e.session)
	}
	m.mu.Unlock()

	infos := make([]leafmap.Info, 0, len(all))
	for _, s := range all {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Remove closes and forgets the session with id.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return errors.NewNotFoundError("session", id)
	}
	e.session.Close()
	m.logger.Info().Str("session_id", id).Msg("Session removed")
	m.removed(id)
	return nil
}

// Sweep closes sessions that have been detached for longer than idle and
// returns how many it closed.
func (m *Manager) Sweep(idle time.Duration) int {
	now := m.now()
	var stale []leafmap.Session

	m.mu.Lock()
	for id, e := range m.sessions {
		if e.detachedAt.IsZero() || e.session.Attached() {
			continue
		}
		if now.Sub(e.detachedAt) > idle {
			stale = append(stale, e.session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		m.logger.Info().Str("session_id", s.ID()).Dur("idle", idle).Msg("Idle session closed")
		m.removed(s.ID())
	}
	return len(stale)
}

// Run sweeps idle sessions every interval until ctx ends. A non-positive
// idle disables sweeping.
func (m *Manager) Run(ctx context.Context, every, idle time.Duration) {
	if idle <= 0 || every <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(idle)
		}
	}
}

// Close closes every session. Later GetOrCreate calls fail with ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range all {
		e.session.Close()
	}
	m.logger.Info().Int("closed", len(all)).Msg("Session manager closed")
}
