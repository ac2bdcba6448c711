package store

import (
	"sync"

	"github.com/copilotchat/copilot/backend/internal/model/chat"
)

// MemoryStore implements Store in memory, suitable for tests and
// ephemeral runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions []chat.Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: []chat.Session{}}
}

// Load returns a copy of the held collection.
func (s *MemoryStore) Load() []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]chat.Session, len(s.sessions))
	copy(copied, s.sessions)
	return copied
}

// Save replaces the held collection.
func (s *MemoryStore) Save(sessions []chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make([]chat.Session, len(sessions))
	copy(s.sessions, sessions)
	return nil
}
