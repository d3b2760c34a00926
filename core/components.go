package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type ComponentHandler func(ctx context.Context, interaction Interaction) (Response, error)

// ComponentPredicate decides whether a handler owns a component interaction.
type ComponentPredicate func(interaction Interaction, data MessageComponentData) bool

func CustomIDEquals(customID string) ComponentPredicate {
	return func(_ Interaction, data MessageComponentData) bool {
		return data.CustomID == customID
	}
}

func CustomIDPrefix(prefix string) ComponentPredicate {
	return func(_ Interaction, data MessageComponentData) bool {
		return strings.HasPrefix(data.CustomID, prefix)
	}
}

type ComponentEntry struct {
	Predicate ComponentPredicate
	Handler   ComponentHandler
}

// ComponentRegistry evaluates predicates in registration order; the first
// match wins.
type ComponentRegistry struct {
	mu      sync.RWMutex
	entries []ComponentEntry
}

func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{}
}

func (r *ComponentRegistry) Register(predicate ComponentPredicate, handler ComponentHandler) error {
	if r == nil {
		return fmt.Errorf("core: component registry is nil")
	}
	if predicate == nil {
		return fmt.Errorf("core: component predicate is required")
	}
	if handler == nil {
		return fmt.Errorf("core: component handler is required")
	}
	r.mu.Lock()
	r.entries = append(r.entries, ComponentEntry{Predicate: predicate, Handler: handler})
	r.mu.Unlock()
	return nil
}

func (r *ComponentRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Match returns the first entry whose predicate accepts the interaction.
func (r *ComponentRegistry) Match(interaction Interaction, data MessageComponentData) (ComponentEntry, bool) {
	if r == nil {
		return ComponentEntry{}, false
	}
	r.mu.RLock()
	entries := r.entries
	r.mu.RUnlock()
	for _, entry := range entries {
		if entry.Predicate(interaction, data) {
			return entry, true
		}
	}
	return ComponentEntry{}, false
}
