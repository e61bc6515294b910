package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	drepo "GoldenScan/internal/domain/repository"
)

// MemoryStateStore keeps state in process memory. Used when Redis is
// disabled and as the store in tests; values round-trip through JSON so
// behaviour matches the Redis-backed store.
type MemoryStateStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStateStore creates an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{data: make(map[string][]byte)}
}

var _ drepo.StateStore = (*MemoryStateStore)(nil)

func (s *MemoryStateStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	data, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("memory decode %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStateStore) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory encode %s: %w", key, err)
	}
	s.mu.Lock()
	s.data[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStateStore) Close() error { return nil }
