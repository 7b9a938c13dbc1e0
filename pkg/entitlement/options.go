package entitlement

import (
	"log/slog"
	"time"
)

// Option configures optional service behavior.
type Option func(*service)

// WithRetryAttempts sets how many times a consumption retries after losing a
// transactional race before surfacing ErrRetryBudgetExhausted.
func WithRetryAttempts(attempts int) Option {
	return func(s *service) {
		if attempts >= 0 {
			s.retryAttempts = attempts
		}
	}
}

// WithBroadcaster wires an event sink for consumption events.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *service) {
		s.broadcaster = b
	}
}

// WithLogger wires a structured logger for ledger activity. Without it the
// service stays silent.
func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}
