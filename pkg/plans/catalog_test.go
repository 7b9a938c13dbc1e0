package plans_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/metering/pkg/plans"
)

func testPlans() map[string]plans.Plan {
	return map[string]plans.Plan{
		"free": {
			ID:       "free",
			Name:     "Free",
			Interval: plans.BillingIntervalNone,
			Limits: map[plans.ResourceType]int64{
				plans.ResourceJobPosting:        1,
				plans.ResourceDirectApplication: 10,
			},
			Active: true,
		},
		"pro": {
			ID:       "pro",
			Name:     "Pro",
			Price:    plans.Money{Amount: 4900, Currency: "USD"},
			Interval: plans.BillingIntervalMonthly,
			Limits: map[plans.ResourceType]int64{
				plans.ResourceJobPosting: 10,
				plans.ResourceResumeView: 50,
				plans.ResourceAIUsage:    plans.Unlimited,
			},
			Features:  []plans.Feature{plans.FeatureResumeDatabase, plans.FeatureAIMatching},
			TrialDays: 14,
			Active:    true,
		},
		"legacy": {
			ID:       "legacy",
			Name:     "Legacy",
			Interval: plans.BillingIntervalMonthly,
			Limits:   map[plans.ResourceType]int64{plans.ResourceJobPosting: 5},
			Active:   false,
		},
	}
}

func TestNewCatalog(t *testing.T) {
	t.Parallel()

	t.Run("valid catalog", func(t *testing.T) {
		t.Parallel()

		catalog, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(testPlans()))
		require.NoError(t, err)

		plan, err := catalog.Plan("pro")
		require.NoError(t, err)
		assert.Equal(t, "Pro", plan.Name)
		assert.True(t, plan.HasFeature(plans.FeatureAIMatching))
	})

	t.Run("id mismatch rejected", func(t *testing.T) {
		t.Parallel()

		bad := map[string]plans.Plan{"free": {ID: "basic", Active: true}}
		_, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(bad))
		assert.ErrorIs(t, err, plans.ErrInvalidPlanConfiguration)
	})

	t.Run("negative limit rejected", func(t *testing.T) {
		t.Parallel()

		bad := map[string]plans.Plan{"free": {
			ID:     "free",
			Limits: map[plans.ResourceType]int64{plans.ResourceJobPosting: -1},
		}}
		_, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(bad))
		assert.ErrorIs(t, err, plans.ErrInvalidPlanConfiguration)
	})

	t.Run("unknown resource rejected", func(t *testing.T) {
		t.Parallel()

		bad := map[string]plans.Plan{"free": {
			ID:     "free",
			Limits: map[plans.ResourceType]int64{"teleportation": 5},
		}}
		_, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(bad))
		assert.ErrorIs(t, err, plans.ErrInvalidPlanConfiguration)
	})

	t.Run("invalid package rejected", func(t *testing.T) {
		t.Parallel()

		pkg := plans.CreditPackage{ID: "bad", Kind: plans.SimpleKind{Resource: plans.ResourceResumeView, Amount: -5}}
		_, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(testPlans()), pkg)
		assert.ErrorIs(t, err, plans.ErrInvalidPackage)
	})
}

func TestCatalogLookups(t *testing.T) {
	t.Parallel()

	pkg := plans.CreditPackage{
		ID:   "resume-50",
		Name: "50 resume views",
		Kind: plans.SimpleKind{Resource: plans.ResourceResumeView, Amount: 50},
	}
	catalog, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(testPlans()), pkg)
	require.NoError(t, err)

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		_, err := catalog.Plan("enterprise")
		assert.ErrorIs(t, err, plans.ErrPlanNotFound)
	})

	t.Run("inactive plan not offered", func(t *testing.T) {
		t.Parallel()

		_, err := catalog.ActivePlan("legacy")
		assert.ErrorIs(t, err, plans.ErrPlanInactive)

		// but still resolvable for existing subscribers
		plan, err := catalog.Plan("legacy")
		require.NoError(t, err)
		assert.Equal(t, "legacy", plan.ID)
	})

	t.Run("package lookup", func(t *testing.T) {
		t.Parallel()

		got, err := catalog.Package("resume-50")
		require.NoError(t, err)
		assert.Equal(t, "50 resume views", got.Name)

		_, err = catalog.Package("nope")
		assert.ErrorIs(t, err, plans.ErrPackageNotFound)
	})
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	const catalogYAML = `
plans:
  free:
    name: Free
    interval: none
    limits:
      job_posting: 1
      direct_application: 10
    active: true
  pro:
    id: pro
    name: Pro
    interval: monthly
    price:
      amount: 4900
      currency: USD
    limits:
      job_posting: 10
      ai_usage: 0
    features: [resume_database]
    trial_days: 14
    active: true
`

	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	catalog, err := plans.NewCatalog(context.Background(), plans.NewFileSource(path))
	require.NoError(t, err)

	free, err := catalog.Plan("free")
	require.NoError(t, err)
	assert.Equal(t, "free", free.ID, "ID filled from map key")
	assert.Equal(t, int64(1), free.Limits[plans.ResourceJobPosting])

	pro, err := catalog.Plan("pro")
	require.NoError(t, err)
	assert.Equal(t, int64(4900), pro.Price.Amount)
	assert.Equal(t, plans.Unlimited, pro.Limits[plans.ResourceAIUsage])
	assert.Equal(t, 14, pro.TrialDays)

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := plans.NewCatalog(context.Background(), plans.NewFileSource("does-not-exist.yaml"))
		assert.ErrorIs(t, err, plans.ErrFailedToLoadCatalog)
	})
}
