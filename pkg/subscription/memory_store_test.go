package subscription_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/metering/pkg/plans"
	"github.com/jobdeck/metering/pkg/subscription"
)

func freePlan() plans.Plan {
	return plans.Plan{
		ID:       "free",
		Interval: plans.BillingIntervalNone,
		Limits:   map[plans.ResourceType]int64{plans.ResourceJobPosting: 1},
		Active:   true,
	}
}

func TestMemoryStoreGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := subscription.NewMemoryStore()

	_, err := store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}

func TestMemoryStoreActivate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := subscription.NewMemoryStore()
	userID := uuid.New()
	now := time.Now().UTC()

	first := subscription.New(userID, freePlan(), now)
	require.NoError(t, store.Activate(ctx, first))

	pro := plans.Plan{
		ID:       "pro",
		Interval: plans.BillingIntervalMonthly,
		Limits:   map[plans.ResourceType]int64{plans.ResourceJobPosting: 10},
		Active:   true,
	}
	require.NoError(t, store.Activate(ctx, subscription.New(userID, pro, now)))

	got, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "pro", got.PlanID, "new activation supersedes the old one")
}

func TestMemoryStoreEnsureDefault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	t.Run("provisions on first access", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		got, err := store.EnsureDefault(ctx, subscription.New(userID, freePlan(), now))
		require.NoError(t, err)
		assert.Equal(t, "free", got.PlanID)
	})

	t.Run("keeps an existing subscription", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		pro := plans.Plan{
			ID:       "pro",
			Interval: plans.BillingIntervalMonthly,
			Limits:   map[plans.ResourceType]int64{plans.ResourceJobPosting: 10},
		}
		require.NoError(t, store.Activate(ctx, subscription.New(userID, pro, now)))

		got, err := store.EnsureDefault(ctx, subscription.New(userID, freePlan(), now))
		require.NoError(t, err)
		assert.Equal(t, "pro", got.PlanID, "default must not replace an existing subscription")
	})

	t.Run("concurrent first accesses converge", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		raceUser := uuid.New()

		const callers = 25
		results := make(chan *subscription.Subscription, callers)
		var wg sync.WaitGroup
		for loopIdx := 0; loopIdx < callers; loopIdx++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sub, err := store.EnsureDefault(ctx, subscription.New(raceUser, freePlan(), time.Now().UTC()))
				if !assert.NoError(t, err) {
					return
				}
				results <- sub
			}()
		}
		wg.Wait()
		close(results)

		var reference *subscription.Subscription
		for sub := range results {
			if reference == nil {
				reference = sub
				continue
			}
			assert.Equal(t, reference.PeriodStart, sub.PeriodStart,
				"every caller must observe the same provisioned subscription")
		}

		got, err := store.Get(ctx, raceUser)
		require.NoError(t, err)
		assert.True(t, got.IsOpen())
	})
}
