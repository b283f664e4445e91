package counter

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process memory. Values are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]int64
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		observe("memory", "get", ErrStoreClosed, false)
		return 0, false, ErrStoreClosed
	}

	value, ok := s.values[key]
	observe("memory", "get", nil, ok)
	return value, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		observe("memory", "set", ErrStoreClosed, false)
		return ErrStoreClosed
	}

	s.values[key] = value
	observe("memory", "set", nil, false)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.values = nil
	return nil
}
