package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store persists subscriptions. A user has at most one open (active or
// trial) subscription; implementations enforce that invariant atomically.
type Store interface {
	// Get returns the user's open subscription.
	// Returns ErrSubscriptionNotFound when none exists.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Save updates the user's current subscription in place (period
	// rollover, cancellation). Creates the row when absent.
	Save(ctx context.Context, sub *Subscription) error

	// Activate stores sub as the user's open subscription, atomically
	// cancelling any prior open one. The supersede and the insert are a
	// single unit: no interleaving can observe two open subscriptions.
	Activate(ctx context.Context, sub *Subscription) error

	// EnsureDefault lazily provisions sub as the user's subscription on
	// first access. Idempotent under concurrency: when a subscription
	// already exists (or a concurrent call wins the race), the stored one
	// is returned and sub is discarded.
	EnsureDefault(ctx context.Context, sub *Subscription) (*Subscription, error)
}
