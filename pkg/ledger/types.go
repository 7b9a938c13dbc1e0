package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/jobdeck/metering/pkg/plans"
)

// Usage is the per-user, per-resource counter for the current billing period.
// It is the authoritative record of how much of the plan allowance is spent.
type Usage struct {
	UserID      uuid.UUID
	Resource    plans.ResourceType
	PeriodStart time.Time
	Used        int64
}

// CreditBalance holds purchased credits for one user and resource type.
// It survives subscription changes and is only mutated through the store's
// atomic primitives, keeping Balance == TotalPurchased - UsedCredits and
// Balance >= 0 at all times.
type CreditBalance struct {
	UserID         uuid.UUID
	Resource       plans.ResourceType
	Balance        int64
	TotalPurchased int64
	UsedCredits    int64
	ExpiresAt      *time.Time
	LastUsedAt     *time.Time
}

// Expired reports whether the balance is past its validity window at now.
func (b CreditBalance) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}
