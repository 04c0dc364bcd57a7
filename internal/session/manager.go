package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"jobmarket-engine/internal/frame"
	"jobmarket-engine/internal/model"
)

// Session is one client's cache set.
type Session struct {
	ID      string
	Created time.Time

	// Datasets caches board tables keyed by board and generation params.
	Datasets *Memo[string, frame.View]

	mu       sync.Mutex
	lastSeen time.Time
	models   map[string]*Slot[string, model.Predictor]
}

// Model returns the trained-model slot of a board.
func (s *Session) Model(board string) *Slot[string, model.Predictor] {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.models[board]
	if !ok {
		sl = &Slot[string, model.Predictor]{}
		s.models[board] = sl
	}
	return sl
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxDatasets int
	now         func() time.Time
}

func NewManager(maxDatasets int) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxDatasets: maxDatasets,
		now:         time.Now,
	}
}

// Touch returns the session for id, creating a fresh one (with a new id)
// when id is empty or unknown. created reports whether that happened.
func (m *Manager) Touch(id string) (s *Session, created bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.sessions[id]; ok && id != "" {
		cur.touch(now)
		return cur, false
	}
	s = &Session{
		ID:       uuid.NewString(),
		Created:  now,
		Datasets: NewMemo[string, frame.View](m.maxDatasets),
		lastSeen: now,
		models:   make(map[string]*Slot[string, model.Predictor]),
	}
	m.sessions[s.ID] = s
	return s, true
}

// SetMaxDatasets changes the dataset cache size of every session, current
// and future.
func (m *Manager) SetMaxDatasets(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxDatasets = n
	for _, s := range m.sessions {
		s.Datasets.SetMax(n)
	}
}

// Sweep drops sessions idle for longer than idle and returns how many.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
