package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store used when Redis is unavailable
type MemoryStore struct {
	mu          sync.RWMutex
	generations map[uint]int64
	entries     map[string]memoryEntry
	now         func() time.Time
}

// NewMemoryStore creates a new MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		generations: make(map[uint]int64),
		entries:     make(map[string]memoryEntry),
		now:         time.Now,
	}
}

// Get returns the cached bytes or ErrMiss
func (s *MemoryStore) Get(_ context.Context, userID uint, kind, filterKey string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[entryKey(userID, s.generations[userID], kind, filterKey)]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, ErrMiss
	}
	return e.value, nil
}

// Set stores value under the user's current generation
func (s *MemoryStore) Set(_ context.Context, userID uint, kind, filterKey string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entryKey(userID, s.generations[userID], kind, filterKey)] = memoryEntry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Invalidate drops every entry of the user
func (s *MemoryStore) Invalidate(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations[userID]++
	for k, e := range s.entries {
		if !s.now().Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	return nil
}
