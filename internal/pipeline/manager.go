package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"omniscore/internal/domain"
	"omniscore/internal/infra"
)

// ActivityRecorder is told about every finished run.
type ActivityRecorder interface {
	RecordRun(op string, ok bool, at time.Time)
}

// Dependencies are shared by every session a Manager opens. Activity is
// optional.
type Dependencies struct {
	Generator Generator
	Assets    AssetSink
	Posts     PostSink
	Activity  ActivityRecorder
}

// Manager owns the open composer sessions. Background operations run on
// the manager's context, so they outlive the request that submitted them
// and stop when the service shuts down.
type Manager struct {
	ctx    context.Context
	deps   Dependencies
	logger infra.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	inflight sync.WaitGroup
}

func NewManager(ctx context.Context, deps Dependencies, logger infra.Logger) *Manager {
	return &Manager{
		ctx:      ctx,
		deps:     deps,
		logger:   infra.Component(logger, "pipeline"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Context is the context background operations run on.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Create opens a fresh session with an empty working slot and default draft.
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.deps, &m.inflight, m.logger, m.now)

	m.mu.Lock()
	m.sessions[s.id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	activeSessions.Set(float64(count))
	m.logger.Debug().Str("session_id", s.id).Msg("session created")
	return s
}

// Get looks up an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// Delete discards a session and disconnects its subscribers. Operations
// still in flight finish against the detached session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return false
	}
	activeSessions.Set(float64(count))
	s.close()
	m.logger.Debug().Str("session_id", id).Msg("session discarded")
	return true
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Wait blocks until every submitted operation has finished, including
// those of sessions deleted while they ran.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// UsesLocator reports whether any open session stages url as its working
// video or visual.
func (m *Manager) UsesLocator(url string) bool {
	if url == "" {
		return false
	}
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		w := s.Working()
		if w.VideoLocator() == url || w.Visual() == url {
			return true
		}
	}
	return false
}
