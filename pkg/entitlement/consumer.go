package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jobdeck/metering/pkg/ledger"
	"github.com/jobdeck/metering/pkg/logger"
	"github.com/jobdeck/metering/pkg/plans"
)

// Source names the ledger side a consumption was charged against.
type Source string

const (
	SourceSubscription Source = "subscription"
	SourceCredit       Source = "credit"
)

// ConsumptionResult reports which source covered a consumption and the
// headroom left on it. Remaining is -1 when the source is an unlimited
// subscription allowance.
type ConsumptionResult struct {
	Source    Source `json:"source"`
	Remaining int64  `json:"remaining"`
}

// Consumer performs the ledger mutation behind an allowed decision.
//
// A consumption charges exactly one source: the subscription allowance when
// headroom remains, otherwise the purchased credit balance. The allowance is
// re-checked under the store's atomic guard rather than trusting the earlier
// Decision, so two concurrent consumptions can never both squeeze past a
// limit only one of them fits under.
type Consumer interface {
	// Consume charges amount units of res to the actor. Callers perform the
	// gated action itself in the same logical transaction, or refund via
	// GrantCredits when the downstream action fails.
	// Returns ledger.ErrInsufficientCredits when both sources are exhausted
	// (the race-loser path; Evaluate normally catches this first).
	Consume(ctx context.Context, actor Actor, res plans.ResourceType, amount int64) (ConsumptionResult, error)

	// GrantPackage credits a purchased package to the user's balances,
	// applying the validity window. Bundles credit every entry.
	GrantPackage(ctx context.Context, userID uuid.UUID, pkg plans.CreditPackage) error

	// GrantCredits adds loose credits to a single balance. Used for manual
	// adjustments and compensating refunds.
	GrantCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64) error
}

// Broadcaster receives ledger events emitted after consumption attempts.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev Event)
}

func (s *service) Consume(ctx context.Context, actor Actor, res plans.ResourceType, amount int64) (ConsumptionResult, error) {
	if amount <= 0 {
		return ConsumptionResult{}, ledger.ErrInvalidAmount
	}
	if !res.Valid() {
		return ConsumptionResult{}, ErrInvalidResource
	}

	sub, err := s.resolveSubscription(ctx, actor)
	if err != nil {
		return ConsumptionResult{}, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		result, err := s.consumeOnce(ctx, actor, res, amount, sub.Limits, sub.CurrentPeriodStart(s.now()))
		if errors.Is(err, ledger.ErrConcurrentModification) {
			lastErr = err
			continue
		}
		return result, err
	}
	s.log.WarnContext(ctx, "consumption retry budget exhausted",
		logger.UserID(actor.ID), logger.Resource(res), logger.Error(lastErr))
	return ConsumptionResult{}, errors.Join(ErrRetryBudgetExhausted, lastErr)
}

func (s *service) consumeOnce(ctx context.Context, actor Actor, res plans.ResourceType, amount int64, limits map[plans.ResourceType]int64, period time.Time) (ConsumptionResult, error) {
	limit, onPlan := limits[res]

	if onPlan {
		err := s.ledger.IncrementUsage(ctx, actor.ID, res, amount, limit, period)
		switch {
		case err == nil:
			remaining := int64(-1)
			if limit != plans.Unlimited {
				// Best-effort read for reporting; the guard already held.
				if usage, err := s.ledger.GetUsage(ctx, actor.ID, res, period); err == nil {
					remaining = limit - usage.Used
				}
			}
			s.emit(ctx, Event{
				Type:      EventCreditConsumed,
				UserID:    actor.ID,
				Resource:  res,
				Amount:    amount,
				Source:    SourceSubscription,
				Remaining: remaining,
				At:        s.now(),
			})
			return ConsumptionResult{Source: SourceSubscription, Remaining: remaining}, nil
		case !errors.Is(err, ledger.ErrLimitExceeded):
			return ConsumptionResult{}, err
		}
	}

	// Allowance exhausted (or resource not on the plan): fall through to the
	// purchased credit balance.
	remaining, err := s.ledger.ConsumeCredits(ctx, actor.ID, res, amount)
	if err == nil {
		s.emit(ctx, Event{
			Type:      EventCreditConsumed,
			UserID:    actor.ID,
			Resource:  res,
			Amount:    amount,
			Source:    SourceCredit,
			Remaining: remaining,
			At:        s.now(),
		})
		return ConsumptionResult{Source: SourceCredit, Remaining: remaining}, nil
	}

	if errors.Is(err, ledger.ErrInsufficientCredits) || errors.Is(err, ledger.ErrExpiredCredits) {
		s.emit(ctx, Event{
			Type:     EventLimitExceeded,
			UserID:   actor.ID,
			Resource: res,
			Amount:   amount,
			At:       s.now(),
		})
	}
	return ConsumptionResult{}, err
}

func (s *service) GrantPackage(ctx context.Context, userID uuid.UUID, pkg plans.CreditPackage) error {
	if err := pkg.Validate(); err != nil {
		return err
	}

	expiresAt := pkg.ExpiryFrom(s.now())
	for res, amount := range pkg.TotalGrants() {
		if err := s.ledger.AddCredits(ctx, userID, res, amount, expiresAt); err != nil {
			return err
		}
	}
	s.log.InfoContext(ctx, "credit package granted",
		logger.UserID(userID), slog.String("package_id", pkg.ID))
	return nil
}

func (s *service) GrantCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64) error {
	if !res.Valid() {
		return ErrInvalidResource
	}
	return s.ledger.AddCredits(ctx, userID, res, amount, nil)
}

func (s *service) emit(ctx context.Context, ev Event) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, ev)
	}
}
