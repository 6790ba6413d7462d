// Package memory provides an in-memory settings store.
package memory

import (
	"context"
	"sync"

	"votedeck/internal/settings"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	current settings.Settings
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{current: settings.Defaults()}
}

func (s *InMemoryStore) Load(context.Context) (settings.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *InMemoryStore) Save(_ context.Context, next settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	return nil
}
