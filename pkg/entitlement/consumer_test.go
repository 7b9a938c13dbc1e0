package entitlement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/metering/pkg/entitlement"
	"github.com/jobdeck/metering/pkg/ledger"
	"github.com/jobdeck/metering/pkg/plans"
	"github.com/jobdeck/metering/pkg/subscription"
)

// eventRecorder collects broadcast events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []entitlement.Event
}

func (r *eventRecorder) Broadcast(_ context.Context, ev entitlement.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) all() []entitlement.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entitlement.Event(nil), r.events...)
}

func TestConsumeChargesOneSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("subscription allowance first", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		actor := verifiedEmployer()
		f.onPro(t, actor)
		require.NoError(t, f.svc.GrantCredits(ctx, actor.ID, plans.ResourceResumeView, 100))

		result, err := f.svc.Consume(ctx, actor, plans.ResourceResumeView, 1)
		require.NoError(t, err)
		assert.Equal(t, entitlement.SourceSubscription, result.Source)
		assert.Equal(t, int64(4), result.Remaining)

		// Credits untouched while plan headroom remains.
		balance, err := f.ledger.GetBalance(ctx, actor.ID, plans.ResourceResumeView)
		require.NoError(t, err)
		assert.Equal(t, int64(100), balance.Balance)
	})

	t.Run("credits after the allowance is spent", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		actor := verifiedEmployer()
		f.onPro(t, actor)
		require.NoError(t, f.svc.GrantCredits(ctx, actor.ID, plans.ResourceResumeView, 2))

		for loopIdx := 0; loopIdx < 5; loopIdx++ {
			result, err := f.svc.Consume(ctx, actor, plans.ResourceResumeView, 1)
			require.NoError(t, err)
			require.Equal(t, entitlement.SourceSubscription, result.Source)
		}

		result, err := f.svc.Consume(ctx, actor, plans.ResourceResumeView, 1)
		require.NoError(t, err)
		assert.Equal(t, entitlement.SourceCredit, result.Source)
		assert.Equal(t, int64(1), result.Remaining)

		// Usage counter stays at the limit: the overflow hit credits only.
		info, err := f.svc.Usage(ctx, actor, plans.ResourceResumeView)
		require.NoError(t, err)
		assert.Equal(t, int64(5), info.Used)
	})

	t.Run("both sources exhausted", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		actor := verifiedEmployer()
		f.onPro(t, actor)

		for loopIdx := 0; loopIdx < 5; loopIdx++ {
			_, err := f.svc.Consume(ctx, actor, plans.ResourceResumeView, 1)
			require.NoError(t, err)
		}
		_, err := f.svc.Consume(ctx, actor, plans.ResourceResumeView, 1)
		assert.ErrorIs(t, err, ledger.ErrInsufficientCredits)
	})

	t.Run("unlimited resource reports no remaining", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		actor := verifiedEmployer()
		f.onPro(t, actor)

		result, err := f.svc.Consume(ctx, actor, plans.ResourceAIUsage, 1)
		require.NoError(t, err)
		assert.Equal(t, entitlement.SourceSubscription, result.Source)
		assert.Equal(t, int64(-1), result.Remaining)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.svc.Consume(ctx, verifiedEmployer(), plans.ResourceJobPosting, 0)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	})
}

// Concurrent consumers must never exceed the combined allowance plus credits,
// and every success must be charged to exactly one source.
func TestConsumeConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	actor := verifiedEmployer()
	f.onPro(t, actor) // 5 resume views on plan
	require.NoError(t, f.svc.GrantCredits(ctx, actor.ID, plans.ResourceResumeView, 3))

	const workers = 20
	results := make(chan entitlement.ConsumptionResult, workers)
	failures := make(chan error, workers)

	var wg sync.WaitGroup
	for loopIdx := 0; loopIdx < workers; loopIdx++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.Consume(ctx, actor, plans.ResourceResumeView, 1)
			if err != nil {
				failures <- err
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)
	close(failures)

	var fromPlan, fromCredits int
	for result := range results {
		switch result.Source {
		case entitlement.SourceSubscription:
			fromPlan++
		case entitlement.SourceCredit:
			fromCredits++
		}
	}
	assert.Equal(t, 5, fromPlan)
	assert.Equal(t, 3, fromCredits)

	for err := range failures {
		assert.ErrorIs(t, err, ledger.ErrInsufficientCredits)
	}

	info, err := f.svc.Usage(ctx, actor, plans.ResourceResumeView)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Used)

	balance, err := f.ledger.GetBalance(ctx, actor.ID, plans.ResourceResumeView)
	require.NoError(t, err)
	assert.Zero(t, balance.Balance)
}

// One unit left on the plan, two racing consumers: exactly one wins it.
func TestConsumeLastUnitRace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	actor := verifiedEmployer()
	f.onPro(t, actor)

	for loopIdx := 0; loopIdx < 4; loopIdx++ {
		_, err := f.svc.Consume(ctx, actor, plans.ResourceResumeView, 1)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	outcomes := make(chan error, 2)
	for loopIdx := 0; loopIdx < 2; loopIdx++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Consume(ctx, actor, plans.ResourceResumeView, 1)
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	var ok, denied int
	for err := range outcomes {
		if err == nil {
			ok++
		} else if assert.ErrorIs(t, err, ledger.ErrInsufficientCredits) {
			denied++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, denied)
}

func TestConsumeEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &eventRecorder{}
	f := newFixture(t, entitlement.WithBroadcaster(rec))
	actor := verifiedEmployer()

	_, err := f.svc.Consume(ctx, actor, plans.ResourceJobPosting, 1)
	require.NoError(t, err)

	// free plan allows 2 postings; third attempt exhausts both sources
	_, err = f.svc.Consume(ctx, actor, plans.ResourceJobPosting, 1)
	require.NoError(t, err)
	_, err = f.svc.Consume(ctx, actor, plans.ResourceJobPosting, 1)
	require.ErrorIs(t, err, ledger.ErrInsufficientCredits)

	events := rec.all()
	require.Len(t, events, 3)

	assert.Equal(t, entitlement.EventCreditConsumed, events[0].Type)
	assert.Equal(t, entitlement.SourceSubscription, events[0].Source)
	assert.Equal(t, actor.ID, events[0].UserID)
	assert.Equal(t, plans.ResourceJobPosting, events[0].Resource)
	assert.Equal(t, int64(1), events[0].Remaining)
	assert.False(t, events[0].At.IsZero())

	assert.Equal(t, entitlement.EventCreditConsumed, events[1].Type)
	assert.Equal(t, int64(0), events[1].Remaining)

	assert.Equal(t, entitlement.EventLimitExceeded, events[2].Type)
	assert.Equal(t, actor.ID, events[2].UserID)
}

func TestGrantPackage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("bundle credits every entry", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		pkg := plans.CreditPackage{
			ID:   "recruiter-bundle",
			Name: "Recruiter Bundle",
			Kind: plans.BundleKind{Entries: map[plans.ResourceType]int64{
				plans.ResourceResumeView:  20,
				plans.ResourceFeaturedJob: 2,
			}},
			Price: plans.Money{Amount: 4900, Currency: "USD"},
		}
		require.NoError(t, f.svc.GrantPackage(ctx, userID, pkg))

		views, err := f.ledger.GetBalance(ctx, userID, plans.ResourceResumeView)
		require.NoError(t, err)
		assert.Equal(t, int64(20), views.Balance)
		assert.Nil(t, views.ExpiresAt)

		featured, err := f.ledger.GetBalance(ctx, userID, plans.ResourceFeaturedJob)
		require.NoError(t, err)
		assert.Equal(t, int64(2), featured.Balance)
	})

	t.Run("bonus and validity window", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		pkg := plans.CreditPackage{
			ID:           "posts-10",
			Name:         "10 Job Posts",
			Kind:         plans.SimpleKind{Resource: plans.ResourceJobPosting, Amount: 10},
			BonusAmount:  2,
			Price:        plans.Money{Amount: 2900, Currency: "USD"},
			ValidityDays: 90,
		}
		before := time.Now().UTC()
		require.NoError(t, f.svc.GrantPackage(ctx, userID, pkg))

		balance, err := f.ledger.GetBalance(ctx, userID, plans.ResourceJobPosting)
		require.NoError(t, err)
		assert.Equal(t, int64(12), balance.Balance, "bonus units are added on top")
		require.NotNil(t, balance.ExpiresAt)
		assert.WithinDuration(t, before.AddDate(0, 0, 90), *balance.ExpiresAt, time.Minute)
	})

	t.Run("invalid package is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		err := f.svc.GrantPackage(ctx, uuid.New(), plans.CreditPackage{ID: "broken"})
		assert.ErrorIs(t, err, plans.ErrInvalidPackage)
	})
}

func TestGrantCredits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	userID := uuid.New()

	require.NoError(t, f.svc.GrantCredits(ctx, userID, plans.ResourceResumeView, 5))

	balance, err := f.ledger.GetBalance(ctx, userID, plans.ResourceResumeView)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance.Balance)
	assert.Nil(t, balance.ExpiresAt, "loose grants never expire")

	assert.ErrorIs(t, f.svc.GrantCredits(ctx, userID, "teleportation", 5), entitlement.ErrInvalidResource)
}

// contentiousStore fails every mutation with a retryable conflict.
type contentiousStore struct {
	*ledger.MemoryStore
	attempts int
	mu       sync.Mutex
}

func (s *contentiousStore) IncrementUsage(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount, limit int64, periodStart time.Time) error {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
	return ledger.ErrConcurrentModification
}

func TestConsumeRetryBudget(t *testing.T) {
	t.Parallel()

	store := &contentiousStore{MemoryStore: ledger.NewMemoryStore()}
	svc, err := entitlement.NewService(testCatalog(t), subscription.NewMemoryStore(), store, "free",
		entitlement.WithRetryAttempts(2))
	require.NoError(t, err)

	_, err = svc.Consume(context.Background(), verifiedEmployer(), plans.ResourceJobPosting, 1)
	assert.ErrorIs(t, err, entitlement.ErrRetryBudgetExhausted)
	assert.ErrorIs(t, err, ledger.ErrConcurrentModification)
	assert.Equal(t, 3, store.attempts, "initial attempt plus two retries")
}
