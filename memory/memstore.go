// ABOUTME: In-memory implementation of the engine's memory store, for tests
// ABOUTME: and for runs that don't need persistence across process restarts.
package memory

import (
	"context"
	"sync"

	"github.com/flumehq/flume/engine"
)

// MemStore keeps profiles and memory values in process memory.
type MemStore struct {
	mu       sync.Mutex
	profiles map[string]map[string]any
	values   map[string]map[string]any // user id -> key -> value
}

var _ engine.MemoryStore = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		profiles: make(map[string]map[string]any),
		values:   make(map[string]map[string]any),
	}
}

// PutUser replaces a user's profile document.
func (s *MemStore) PutUser(_ context.Context, userID string, profile map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]any, len(profile))
	for k, v := range profile {
		copied[k] = v
	}
	s.profiles[userID] = copied
	return nil
}

// Load returns the user's profile and the requested memory keys. An empty key
// list loads every key stored for the user.
func (s *MemStore) Load(_ context.Context, userID string, keys []string) (map[string]any, map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := map[string]any{}
	for k, v := range s.profiles[userID] {
		user[k] = v
	}

	mem := map[string]any{}
	stored := s.values[userID]
	if len(keys) == 0 {
		for k, v := range stored {
			mem[k] = v
		}
	} else {
		for _, k := range keys {
			if v, ok := stored[k]; ok {
				mem[k] = v
			}
		}
	}
	return user, mem, nil
}

// Save merges the patch into the user's stored values.
func (s *MemStore) Save(_ context.Context, userID string, patch map[string]any, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values[userID] == nil {
		s.values[userID] = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		s.values[userID][k] = v
	}
	return nil
}
