package events

import (
	"context"
	"sync"
)

// Store is the durable event backend.
type Store interface {
	// Append writes one event. Implementations must never mutate existing
	// records.
	Append(ctx context.Context, event Event) error
	// ListByUser returns up to limit events for a user, most recent first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Event, error)
	// DeleteByUser removes a user's entire trail (account-deletion cascade).
	DeleteByUser(ctx context.Context, userID string) error
	// Close releases store resources.
	Close() error
}

// MemoryStore keeps events in process memory. It is the default for tests
// and single-process deployments without durability requirements.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]Event
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: make(map[string][]Event)}
}

// Append implements [Store].
func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[event.UserID] = append(s.byUser[event.UserID], event)
	return nil
}

// ListByUser implements [Store].
func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trail := s.byUser[userID]
	if limit <= 0 || limit > len(trail) {
		limit = len(trail)
	}

	out := make([]Event, 0, limit)
	for i := len(trail) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, trail[i])
	}
	return out, nil
}

// DeleteByUser implements [Store].
func (s *MemoryStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
	return nil
}

// Close implements [Store].
func (s *MemoryStore) Close() error { return nil }
