package localstore

import (
	"context"
	"sync"
)

// MemoryStore is the in-process backend used by tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string

	failErr error
}

func NewMemory() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Fail makes every subsequent operation return err. Pass nil to recover.
// Test hook.
func (s *MemoryStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return "", false, s.failErr
	}
	value, found := s.values[key]
	return value, found, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	delete(s.values, key)
	return nil
}
