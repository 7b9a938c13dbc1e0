package ledger

import "errors"

var (
	// ErrLimitExceeded is returned by IncrementUsage when the guarded
	// increment would push the counter past the plan limit.
	ErrLimitExceeded = errors.New("usage limit exceeded")

	// ErrInsufficientCredits is returned by ConsumeCredits when the balance
	// cannot cover the requested amount. The balance is left untouched.
	ErrInsufficientCredits = errors.New("insufficient credit balance")

	// ErrExpiredCredits is returned when a balance exists but is past its
	// validity window.
	ErrExpiredCredits = errors.New("credit balance expired")

	// ErrStorageUnavailable wraps infrastructure failures reaching the
	// backing store. Callers must fail closed on this error.
	ErrStorageUnavailable = errors.New("ledger storage unavailable")

	// ErrConcurrentModification signals a lost transactional race. The whole
	// check-then-mutate sequence can be retried.
	ErrConcurrentModification = errors.New("concurrent ledger modification")

	// ErrInvalidAmount is returned for zero or negative mutation amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)
