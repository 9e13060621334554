package session

import (
	"context"
	"sync"

	"github.com/hupe1980/scenemesh/core"
)

// InMemoryStore is a volatile SessionStore implementation storing records in
// a process local map. It is safe for concurrent access and best suited for
// tests or single-process bots. Records are cloned on the way in and out so
// callers never alias internal state.
//
// There is no eviction: the map grows with the number of distinct users.
// Durable deployments should use a backend with TTL support.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in‑memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Get returns a clone of the stored record, or nil when the user has none.
func (s *InMemoryStore) Get(_ context.Context, userID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.Clone(), nil
	}
	return nil, nil
}

// Set replaces the stored record with a clone of sess.
func (s *InMemoryStore) Set(_ context.Context, userID string, sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := sess.Clone()
	if clone == nil {
		clone = core.NewSession()
	}
	clone.EnsureData()
	s.sessions[userID] = clone
	return nil
}

// Delete removes the record; deleting a missing user is a no-op.
func (s *InMemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
