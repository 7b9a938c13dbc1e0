package subscription

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-process Store for tests and
// single-process use.
type MemoryStore struct {
	mu   sync.Mutex
	open map[uuid.UUID]*Subscription
}

// NewMemoryStore creates an empty in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{open: make(map[uuid.UUID]*Subscription)}
}

func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.open[userID]
	if !exists || !sub.IsOpen() {
		return nil, ErrSubscriptionNotFound
	}
	return clone(sub), nil
}

func (s *MemoryStore) Save(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open[sub.UserID] = clone(sub)
	return nil
}

func (s *MemoryStore) Activate(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Supersede any prior open subscription in the same critical section.
	if prior, exists := s.open[sub.UserID]; exists && prior.IsOpen() {
		now := time.Now().UTC()
		prior.Status = StatusCanceled
		prior.CancelledAt = &now
		prior.UpdatedAt = now
	}
	s.open[sub.UserID] = clone(sub)
	return nil
}

func (s *MemoryStore) EnsureDefault(ctx context.Context, sub *Subscription) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.open[sub.UserID]; exists && existing.IsOpen() {
		return clone(existing), nil
	}
	s.open[sub.UserID] = clone(sub)
	return clone(sub), nil
}

func clone(sub *Subscription) *Subscription {
	c := *sub
	c.Limits = maps.Clone(sub.Limits)
	return &c
}
