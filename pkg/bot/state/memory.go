package state

import (
	"context"
	"sync"
)

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, tenantID int64) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[tenantID]
	if !ok {
		return &Session{Phase: Idle}, nil
	}
	copied := *session
	copied.Pending = append([]string(nil), session.Pending...)
	return &copied, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, tenantID int64, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	copied.Pending = append([]string(nil), session.Pending...)
	s.sessions[tenantID] = &copied
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(ctx context.Context, tenantID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tenantID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
