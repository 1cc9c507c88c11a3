package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions vanish on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	now      func() time.Time
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Load returns a copy of the user's session, or an idle session if none exists.
func (m *MemoryStore) Load(_ context.Context, userID int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	if !ok {
		return NewSession(StateIdle), nil
	}
	return s.clone(), nil
}

// Save replaces the user's session.
func (m *MemoryStore) Save(_ context.Context, userID int64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s = s.clone()
	s.UpdatedAt = m.now()
	m.sessions[userID] = s
	return nil
}

// Delete removes the entire session for a user.
func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Len reports how many users currently hold a session.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
