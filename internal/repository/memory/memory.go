// Package memory implements repository.KVStore on a map. It backs tests and
// the --memory server mode, where nothing needs to survive a restart.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/sakif/study-buddy/internal/repository"
)

// Compile-time check that *Store satisfies the interface.
var _ repository.KVStore = (*Store)(nil)

// Store is a concurrency-safe in-memory key-value store.
//
// Values are copied on the way in and on the way out, so a caller that
// reuses its buffer cannot corrupt what is stored.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the value under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(value), true, nil
}

// Put stores a copy of value under key.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = bytes.Clone(value)
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}
