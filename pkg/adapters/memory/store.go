package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/rapport/pkg/domain"
)

// Store implements ports.ResultStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Result
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Result),
	}
}

// Save persists the result in memory.
func (s *Store) Save(ctx context.Context, sessionID string, result *domain.Result) error {
	copied := cloneResult(result)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load retrieves the result from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrResultNotFound
	}
	// Copy on read so callers can't mutate stored results through the pointer.
	return cloneResult(result), nil
}

// Delete removes the result.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the ids of stored results, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.data)), nil
}

func cloneResult(r *domain.Result) *domain.Result {
	return r.Clone()
}
