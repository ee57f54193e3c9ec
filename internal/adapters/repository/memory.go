package repository

import (
	"context"
	"sync"
)

// MemoryStore keeps the slot in process memory behind a read/write lock.
type MemoryStore struct {
	mu   sync.RWMutex
	slot Slot
	set  bool
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Write replaces the slot as one value.
func (s *MemoryStore) Write(_ context.Context, slot Slot) error {
	s.mu.Lock()
	s.slot = slot
	s.set = true
	s.mu.Unlock()
	return nil
}

// Read copies the slot under the read lock.
func (s *MemoryStore) Read(_ context.Context) (Slot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slot, s.set, nil
}

// Backend implements Store.
func (s *MemoryStore) Backend() string { return "memory" }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
