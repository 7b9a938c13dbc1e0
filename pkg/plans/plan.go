package plans

import (
	"slices"
	"time"
)

// Plan describes a subscription tier: per-resource limits, feature flags and
// trial length. Plans are immutable once referenced by an active subscription;
// subscriptions snapshot limits at activation, so catalog edits only affect
// new activations. Plans are never deleted, only deactivated.
type Plan struct {
	ID        string                 `yaml:"id"`
	Name      string                 `yaml:"name"`
	Price     Money                  `yaml:"price"`
	Interval  BillingInterval        `yaml:"interval"`
	Limits    map[ResourceType]int64 `yaml:"limits"`
	Features  []Feature              `yaml:"features"`
	TrialDays int                    `yaml:"trial_days"`
	Active    bool                   `yaml:"active"`
}

// Limit returns the plan's cap for the given resource.
// Resources absent from the map are capped at zero actions, which is
// distinct from an explicit Unlimited entry.
func (p Plan) Limit(res ResourceType) (int64, bool) {
	limit, ok := p.Limits[res]
	return limit, ok
}

// HasFeature reports whether the plan enables the given feature flag.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// IsFree reports whether the plan bypasses billing entirely.
func (p Plan) IsFree() bool {
	return p.Interval == BillingIntervalNone || p.Price.Amount == 0
}

// TrialEndsAt returns when a trial started at startedAt ends.
// Plans without a trial return startedAt unchanged.
func (p Plan) TrialEndsAt(startedAt time.Time) time.Time {
	if p.TrialDays <= 0 {
		return startedAt
	}
	return startedAt.AddDate(0, 0, p.TrialDays).UTC()
}

// IsTrialActive reports whether a trial started at startedAt is still running.
func (p Plan) IsTrialActive(startedAt time.Time) bool {
	if p.TrialDays <= 0 {
		return false
	}
	return time.Now().UTC().Before(p.TrialEndsAt(startedAt))
}

// PeriodEnd returns the end of a billing period starting at start.
// Free plans roll over monthly so usage counters still reset.
func (p Plan) PeriodEnd(start time.Time) time.Time {
	switch p.Interval {
	case BillingIntervalYearly:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// LimitChange records a limit moving between two plans.
type LimitChange struct {
	From int64
	To   int64
}

// Comparison captures the differences between a current and a target plan.
type Comparison struct {
	NewFeatures      []Feature
	LostFeatures     []Feature
	RaisedLimits     map[ResourceType]LimitChange
	LoweredLimits    map[ResourceType]LimitChange
	AddedResources   map[ResourceType]int64
	DroppedResources map[ResourceType]int64
}

// HasLoweredLimits reports whether any resource loses headroom in the target plan.
func (c *Comparison) HasLoweredLimits() bool {
	return len(c.LoweredLimits) > 0 || len(c.DroppedResources) > 0
}

// Compare returns the feature and limit differences between two plans.
// Returns nil when either plan is nil.
func Compare(current, target *Plan) *Comparison {
	if current == nil || target == nil {
		return nil
	}

	cmp := &Comparison{
		RaisedLimits:     make(map[ResourceType]LimitChange),
		LoweredLimits:    make(map[ResourceType]LimitChange),
		AddedResources:   make(map[ResourceType]int64),
		DroppedResources: make(map[ResourceType]int64),
	}

	for _, f := range target.Features {
		if !slices.Contains(current.Features, f) {
			cmp.NewFeatures = append(cmp.NewFeatures, f)
		}
	}
	for _, f := range current.Features {
		if !slices.Contains(target.Features, f) {
			cmp.LostFeatures = append(cmp.LostFeatures, f)
		}
	}

	for res, targetLimit := range target.Limits {
		currentLimit, exists := current.Limits[res]
		if !exists {
			cmp.AddedResources[res] = targetLimit
			continue
		}
		if targetLimit == currentLimit {
			continue
		}

		change := LimitChange{From: currentLimit, To: targetLimit}
		switch {
		case currentLimit == Unlimited:
			// unlimited -> capped is always a loss
			cmp.LoweredLimits[res] = change
		case targetLimit == Unlimited:
			cmp.RaisedLimits[res] = change
		case targetLimit > currentLimit:
			cmp.RaisedLimits[res] = change
		default:
			cmp.LoweredLimits[res] = change
		}
	}

	for res, currentLimit := range current.Limits {
		if _, exists := target.Limits[res]; !exists {
			cmp.DroppedResources[res] = currentLimit
		}
	}

	return cmp
}
