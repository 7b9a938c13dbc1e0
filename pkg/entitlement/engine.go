package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jobdeck/metering/pkg/ledger"
	"github.com/jobdeck/metering/pkg/logger"
	"github.com/jobdeck/metering/pkg/plans"
	"github.com/jobdeck/metering/pkg/subscription"
)

// JobFacts carries the job-specific facts needed by the fine-grained posting
// rules. Gathered by the caller from the job payload and its own records.
type JobFacts struct {
	// ActiveJobs is the actor's current count of non-closed postings.
	ActiveJobs int64
	// PlacementFee is set when the job payload requests a placement fee.
	PlacementFee bool
	// PlacementType is set when the job is a placement-type listing.
	PlacementType bool
}

// Request carries action-specific facts into an evaluation.
type Request struct {
	// Amount is the number of units the action will consume. Zero means one.
	Amount int64
	// Job must be set when evaluating job postings.
	Job *JobFacts
}

func (r Request) amount() int64 {
	if r.Amount <= 0 {
		return 1
	}
	return r.Amount
}

// UsageInfo reports consumed versus allotted units for one resource.
type UsageInfo struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// Engine answers "may this actor perform this gated action right now".
// Evaluation reads the ledger but never mutates it; the only write it may
// trigger is the idempotent first-access provisioning of the default
// subscription.
//
// Business denials come back as a Decision, never as an error. Errors are
// infrastructure failures only and callers must fail closed on them.
type Engine interface {
	// Evaluate runs the full gate: admin bypass, role check, plan allowance
	// with credit fallback, and resource-specific fine rules.
	Evaluate(ctx context.Context, actor Actor, res plans.ResourceType, req Request) (Decision, error)

	// Usage returns consumed and allotted units for the current period.
	Usage(ctx context.Context, actor Actor, res plans.ResourceType) (UsageInfo, error)

	// AllUsage returns usage for every resource on the actor's plan.
	AllUsage(ctx context.Context, actor Actor) (map[plans.ResourceType]UsageInfo, error)

	// CanDowngrade reports whether current usage fits within the target
	// plan's limits. Returns ErrDowngradeNotPossible when it does not.
	CanDowngrade(ctx context.Context, actor Actor, targetPlanID string) error
}

// ErrDowngradeNotPossible is returned by CanDowngrade when current usage
// exceeds a limit of the target plan.
var ErrDowngradeNotPossible = errors.New("plan downgrade not possible")

type service struct {
	catalog       *plans.Catalog
	subs          subscription.Store
	ledger        ledger.Store
	defaultPlanID string
	retryAttempts int
	broadcaster   Broadcaster
	log           *slog.Logger
	now           func() time.Time
}

// Service combines the decision engine with the consumption service. Both
// views share subscription resolution and the lazy free-tier provisioning.
type Service interface {
	Engine
	Consumer
}

// NewService wires the engine and consumer over the given catalog and
// stores. Panics when a required dependency is nil; optional behavior is
// configured through options.
func NewService(catalog *plans.Catalog, subs subscription.Store, store ledger.Store, defaultPlanID string, opts ...Option) (Service, error) {
	if catalog == nil {
		panic("entitlement: plan catalog is required")
	}
	if subs == nil {
		panic("entitlement: subscription store is required")
	}
	if store == nil {
		panic("entitlement: ledger store is required")
	}

	// The default plan must exist: it backs lazy provisioning for every
	// user who never picked a plan.
	if _, err := catalog.Plan(defaultPlanID); err != nil {
		return nil, err
	}

	s := &service{
		catalog:       catalog,
		subs:          subs,
		ledger:        store,
		defaultPlanID: defaultPlanID,
		retryAttempts: 3,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Evaluate(ctx context.Context, actor Actor, res plans.ResourceType, req Request) (Decision, error) {
	if !res.Valid() {
		return Decision{}, ErrInvalidResource
	}

	if actor.IsAdmin() {
		return Allow(), nil
	}
	if !roleAllowed(actor.Role, res) {
		return Deny(ReasonInsufficientRole), nil
	}

	sub, err := s.resolveSubscription(ctx, actor)
	if err != nil {
		return Decision{}, err
	}

	limit, onPlan := sub.Limit(res)
	unlimited := onPlan && limit == plans.Unlimited

	if !unlimited {
		exhausted := !onPlan
		if onPlan {
			usage, err := s.ledger.GetUsage(ctx, actor.ID, res, sub.CurrentPeriodStart(s.now()))
			if err != nil {
				return Decision{}, err
			}
			exhausted = usage.Used+req.amount() > limit
		}

		// Credits are the consumer of last resort: the plan allowance is
		// spent first, purchased credits only cover the overflow.
		if exhausted {
			balance, err := s.ledger.GetBalance(ctx, actor.ID, res)
			if err != nil {
				return Decision{}, err
			}
			if balance.Expired(s.now()) || balance.Balance < req.amount() {
				return Deny(ReasonLimitExceeded), nil
			}
		}
	}

	return s.applyFineRules(actor, res, req), nil
}

// applyFineRules layers the posting-specific gates on top of the generic
// allowance check. Unverified accounts stay capped at one open posting and
// may not request placement listings, no matter what their plan allows.
func (s *service) applyFineRules(actor Actor, res plans.ResourceType, req Request) Decision {
	if res != plans.ResourceJobPosting {
		return Allow()
	}
	if actor.IsVerified() {
		return Allow()
	}

	job := req.Job
	if job == nil {
		job = &JobFacts{}
	}
	if job.PlacementFee || job.PlacementType {
		return Deny(ReasonPlacementRestricted)
	}
	if job.ActiveJobs >= 1 {
		return Deny(ReasonNotVerified)
	}

	// Allowed, but flagged so the caller surfaces a verification nudge.
	return AllowLimited()
}

func (s *service) Usage(ctx context.Context, actor Actor, res plans.ResourceType) (UsageInfo, error) {
	if !res.Valid() {
		return UsageInfo{}, ErrInvalidResource
	}

	sub, err := s.resolveSubscription(ctx, actor)
	if err != nil {
		return UsageInfo{}, err
	}

	limit := sub.Limits[res]
	usage, err := s.ledger.GetUsage(ctx, actor.ID, res, sub.CurrentPeriodStart(s.now()))
	if err != nil {
		return UsageInfo{}, err
	}
	return UsageInfo{Used: usage.Used, Limit: limit}, nil
}

func (s *service) AllUsage(ctx context.Context, actor Actor) (map[plans.ResourceType]UsageInfo, error) {
	sub, err := s.resolveSubscription(ctx, actor)
	if err != nil {
		return nil, err
	}

	period := sub.CurrentPeriodStart(s.now())
	result := make(map[plans.ResourceType]UsageInfo, len(sub.Limits))
	for res, limit := range sub.Limits {
		usage, err := s.ledger.GetUsage(ctx, actor.ID, res, period)
		if err != nil {
			return nil, err
		}
		result[res] = UsageInfo{Used: usage.Used, Limit: limit}
	}
	return result, nil
}

func (s *service) CanDowngrade(ctx context.Context, actor Actor, targetPlanID string) error {
	target, err := s.catalog.Plan(targetPlanID)
	if err != nil {
		return err
	}

	sub, err := s.resolveSubscription(ctx, actor)
	if err != nil {
		return err
	}

	period := sub.CurrentPeriodStart(s.now())
	for res, targetLimit := range target.Limits {
		if targetLimit == plans.Unlimited {
			continue
		}
		usage, err := s.ledger.GetUsage(ctx, actor.ID, res, period)
		if err != nil {
			return err
		}
		if usage.Used > targetLimit {
			return ErrDowngradeNotPossible
		}
	}
	return nil
}

// resolveSubscription returns the actor's open subscription, lazily
// provisioning the default plan on first access. Provisioning is an upsert:
// concurrent first accesses converge on a single stored subscription.
func (s *service) resolveSubscription(ctx context.Context, actor Actor) (*subscription.Subscription, error) {
	sub, err := s.subs.Get(ctx, actor.ID)
	if err == nil {
		return sub.Rolled(s.now()), nil
	}
	if !errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, err
	}

	plan, err := s.catalog.Plan(s.defaultPlanID)
	if err != nil {
		return nil, err
	}

	sub, err = s.subs.EnsureDefault(ctx, subscription.New(actor.ID, plan, s.now()))
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "default subscription provisioned",
		logger.UserID(actor.ID), logger.Plan(sub.PlanID))
	return sub.Rolled(s.now()), nil
}
