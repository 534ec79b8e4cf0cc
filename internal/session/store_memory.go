package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	rec       *Record
	expiresAt time.Time
}

// MemoryStore keeps sessions in memory for dev and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemoryStore constructs an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{rec: rec}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.sessions[rec.ID] = entry
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	if !entry.expiresAt.IsZero() && entry.expiresAt.Before(s.now()) {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return entry.rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteExpired removes all sessions expired as of the given time. The time
// parameter is injected for testability.
func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, entry := range s.sessions {
		if !entry.expiresAt.IsZero() && entry.expiresAt.Before(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted
}
