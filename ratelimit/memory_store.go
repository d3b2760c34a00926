package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-interactions/core"
)

type MemoryStateStore struct {
	mu    sync.RWMutex
	items map[string]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{items: map[string]State{}}
}

func (s *MemoryStateStore) Get(_ context.Context, key core.RateLimitKey) (State, error) {
	if s == nil {
		return State{}, fmt.Errorf("ratelimit: state store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.items[StateKey(key)]
	if !ok {
		return State{}, ErrStateNotFound
	}
	state.Metadata = cloneMap(state.Metadata)
	return state, nil
}

func (s *MemoryStateStore) Upsert(_ context.Context, state State) error {
	if s == nil {
		return fmt.Errorf("ratelimit: state store is nil")
	}
	state.Key = normalizeKey(state.Key)
	state.Metadata = cloneMap(state.Metadata)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[StateKey(state.Key)] = state
	return nil
}

// StateKey is the storage identity of a bucket.
func StateKey(key core.RateLimitKey) string {
	key = normalizeKey(key)
	return key.Route + "|" + key.BucketKey
}

var _ StateStore = (*MemoryStateStore)(nil)
