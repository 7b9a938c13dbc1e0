package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jobdeck/metering/pkg/plans"
)

// Store is the usage ledger. Mutations go exclusively through atomic
// guarded primitives; there is deliberately no raw set operation, so calling
// code cannot break the ledger invariants.
//
// For a single (user, resource) pair all mutations are linearizable: two
// concurrent increments against the same remaining allowance are serialized
// by the implementation, never both admitted past the limit.
type Store interface {
	// IncrementUsage adds amount to the period counter only if the result
	// stays within limit. A limit of plans.Unlimited (zero) skips the guard.
	// Counters from earlier periods are reset before the increment, so a new
	// billing period always starts from zero.
	// Returns ErrLimitExceeded when the guard rejects the increment.
	IncrementUsage(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount, limit int64, periodStart time.Time) error

	// ConsumeCredits removes amount from the purchased balance, bumping
	// UsedCredits and LastUsedAt in the same atomic step. It never applies
	// partially and never drives the balance negative.
	// Returns the remaining balance, or ErrInsufficientCredits /
	// ErrExpiredCredits without mutating anything.
	ConsumeCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64) (int64, error)

	// AddCredits grants purchased credits, raising Balance and TotalPurchased
	// by the same amount. A non-nil expiresAt extends the validity window to
	// the later of the existing and the new expiry; nil removes expiry.
	AddCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64, expiresAt *time.Time) error

	// GetUsage reads the counter for the given period. Absent counters and
	// counters from earlier periods read as zero.
	GetUsage(ctx context.Context, userID uuid.UUID, res plans.ResourceType, periodStart time.Time) (Usage, error)

	// GetBalance reads the credit balance. Absent balances read as zero.
	GetBalance(ctx context.Context, userID uuid.UUID, res plans.ResourceType) (CreditBalance, error)
}
