package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/jobdeck/metering/pkg/plans"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusTrial    Status = "trial"
	StatusCanceled Status = "canceled"
)

// Subscription binds a user to a plan for a billing period. At most one
// subscription per user is in an open state (active or trial) at any instant;
// activating a new one supersedes the previous atomically.
//
// Limits and the billing interval are snapshotted from the plan at activation
// time, so later catalog edits never change the terms of a running
// subscription.
type Subscription struct {
	UserID      uuid.UUID
	PlanID      string
	Status      Status
	Interval    plans.BillingInterval
	Limits      map[plans.ResourceType]int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	TrialEndsAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt *time.Time
}

// New builds a subscription for the given plan, snapshotting its limits and
// opening the first billing period at now.
func New(userID uuid.UUID, plan plans.Plan, now time.Time) *Subscription {
	now = now.UTC()
	sub := &Subscription{
		UserID:      userID,
		PlanID:      plan.ID,
		Status:      StatusActive,
		Interval:    plan.Interval,
		Limits:      make(map[plans.ResourceType]int64, len(plan.Limits)),
		PeriodStart: now,
		PeriodEnd:   plan.PeriodEnd(now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for res, limit := range plan.Limits {
		sub.Limits[res] = limit
	}
	if plan.TrialDays > 0 {
		sub.Status = StatusTrial
		trialEnd := plan.TrialEndsAt(now)
		sub.TrialEndsAt = &trialEnd
	}
	return sub
}

// IsOpen reports whether the subscription currently grants entitlements.
func (s *Subscription) IsOpen() bool {
	return s.Status == StatusActive || s.Status == StatusTrial
}

// IsTrialing reports whether the subscription is in its trial window.
func (s *Subscription) IsTrialing() bool {
	return s.Status == StatusTrial
}

// Limit returns the snapshotted cap for the given resource.
func (s *Subscription) Limit(res plans.ResourceType) (int64, bool) {
	limit, ok := s.Limits[res]
	return limit, ok
}

// PeriodExpired reports whether now falls outside the recorded billing period.
func (s *Subscription) PeriodExpired(now time.Time) bool {
	return !now.Before(s.PeriodEnd)
}

// CurrentPeriodStart returns the start of the billing period containing now.
// Rollover is lazy: nothing is written until a mutation needs the new period,
// and usage counters keyed by period start reset implicitly.
func (s *Subscription) CurrentPeriodStart(now time.Time) time.Time {
	start, _ := s.currentPeriod(now)
	return start
}

// Rolled returns a copy of the subscription advanced to the billing period
// containing now. Returns the receiver unchanged when no rollover is due.
func (s *Subscription) Rolled(now time.Time) *Subscription {
	if !s.PeriodExpired(now) {
		return s
	}
	rolled := *s
	rolled.PeriodStart, rolled.PeriodEnd = s.currentPeriod(now)
	rolled.UpdatedAt = now.UTC()
	return &rolled
}

func (s *Subscription) currentPeriod(now time.Time) (time.Time, time.Time) {
	start, end := s.PeriodStart, s.PeriodEnd
	for !now.Before(end) {
		start = end
		end = advance(end, s.Interval)
	}
	return start, end
}

func advance(t time.Time, interval plans.BillingInterval) time.Time {
	if interval == plans.BillingIntervalYearly {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}
