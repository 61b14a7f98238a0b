// Package indexstate tracks which paths are already committed to the store.
package indexstate

import (
	"context"
	"fmt"
	"sync"

	"filesearch/internal/domain"
)

// Lister is the part of a store needed to rebuild the state.
type Lister interface {
	All(ctx context.Context) ([]domain.Metadata, error)
}

// State is a process-local set of committed ids. It is never persisted;
// Load rebuilds it from the store.
type State struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func New() *State {
	return &State{ids: make(map[string]struct{})}
}

// Load replaces the contents with the ids currently in the store.
func Load(ctx context.Context, store Lister) (*State, error) {
	all, err := store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load index state: %w", err)
	}
	s := &State{ids: make(map[string]struct{}, len(all))}
	for _, m := range all {
		s.ids[m.Path] = struct{}{}
	}
	return s, nil
}

func (s *State) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *State) Add(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *State) Remove(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.ids, id)
	}
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
