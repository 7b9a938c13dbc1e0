package entitlement

import "errors"

var (
	// ErrInvalidResource is returned for resource types the catalog does not
	// know about.
	ErrInvalidResource = errors.New("invalid resource type")

	// ErrRetryBudgetExhausted is returned when a consumption kept losing its
	// transactional race past the configured retry budget. The condition is
	// transient; the whole evaluate+consume sequence can be retried.
	ErrRetryBudgetExhausted = errors.New("consumption retry budget exhausted")
)
