package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobdeck/metering/pkg/plans"
)

type ledgerKey struct {
	userID   uuid.UUID
	resource plans.ResourceType
}

// MemoryStore is a mutex-guarded in-process Store. Suitable for tests and
// single-process deployments; every primitive runs under one lock, which
// gives the same linearizability as the transactional backends.
type MemoryStore struct {
	mu       sync.Mutex
	usage    map[ledgerKey]*Usage
	balances map[ledgerKey]*CreditBalance
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usage:    make(map[ledgerKey]*Usage),
		balances: make(map[ledgerKey]*CreditBalance),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source. Test helper; not safe to call
// concurrently with ledger operations.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *MemoryStore) IncrementUsage(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount, limit int64, periodStart time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey{userID, res}
	u, exists := s.usage[key]
	if !exists {
		u = &Usage{UserID: userID, Resource: res, PeriodStart: periodStart}
		s.usage[key] = u
	}

	// Rolling into a new period discards the stale counter.
	if u.PeriodStart.Before(periodStart) {
		u.PeriodStart = periodStart
		u.Used = 0
	}

	if limit != plans.Unlimited && u.Used+amount > limit {
		return ErrLimitExceeded
	}

	u.Used += amount
	return nil
}

func (s *MemoryStore) ConsumeCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.balances[ledgerKey{userID, res}]
	if !exists {
		return 0, ErrInsufficientCredits
	}
	if b.Expired(s.now()) {
		return 0, ErrExpiredCredits
	}
	if b.Balance < amount {
		return b.Balance, ErrInsufficientCredits
	}

	now := s.now()
	b.Balance -= amount
	b.UsedCredits += amount
	b.LastUsedAt = &now
	return b.Balance, nil
}

func (s *MemoryStore) AddCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64, expiresAt *time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey{userID, res}
	b, exists := s.balances[key]
	if !exists {
		b = &CreditBalance{UserID: userID, Resource: res, ExpiresAt: expiresAt}
		s.balances[key] = b
	} else {
		b.ExpiresAt = mergeExpiry(b.ExpiresAt, expiresAt)
	}

	b.Balance += amount
	b.TotalPurchased += amount
	return nil
}

func (s *MemoryStore) GetUsage(ctx context.Context, userID uuid.UUID, res plans.ResourceType, periodStart time.Time) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.usage[ledgerKey{userID, res}]
	if !exists || u.PeriodStart.Before(periodStart) {
		return Usage{UserID: userID, Resource: res, PeriodStart: periodStart}, nil
	}
	return *u, nil
}

func (s *MemoryStore) GetBalance(ctx context.Context, userID uuid.UUID, res plans.ResourceType) (CreditBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.balances[ledgerKey{userID, res}]
	if !exists {
		return CreditBalance{UserID: userID, Resource: res}, nil
	}
	return *b, nil
}

// mergeExpiry picks the validity window after a top-up: nil (never expires)
// wins, otherwise the later of the two expiries.
func mergeExpiry(current, added *time.Time) *time.Time {
	if current == nil || added == nil {
		return nil
	}
	if added.After(*current) {
		return added
	}
	return current
}
