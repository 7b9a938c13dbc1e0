package plans_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/metering/pkg/plans"
)

func TestCreditPackageGrants(t *testing.T) {
	t.Parallel()

	t.Run("simple with bonus", func(t *testing.T) {
		t.Parallel()

		pkg := plans.CreditPackage{
			ID:          "resume-100",
			Kind:        plans.SimpleKind{Resource: plans.ResourceResumeView, Amount: 100},
			BonusAmount: 20,
		}

		grants := pkg.TotalGrants()
		require.Len(t, grants, 1)
		assert.Equal(t, int64(120), grants[plans.ResourceResumeView])
	})

	t.Run("bundle ignores bonus", func(t *testing.T) {
		t.Parallel()

		pkg := plans.CreditPackage{
			ID: "starter-bundle",
			Kind: plans.BundleKind{Entries: map[plans.ResourceType]int64{
				plans.ResourceJobPosting: 5,
				plans.ResourceResumeView: 25,
			}},
			BonusAmount: 10,
		}

		grants := pkg.TotalGrants()
		require.Len(t, grants, 2)
		assert.Equal(t, int64(5), grants[plans.ResourceJobPosting])
		assert.Equal(t, int64(25), grants[plans.ResourceResumeView])
	})
}

func TestCreditPackageValidate(t *testing.T) {
	t.Parallel()

	valid := plans.CreditPackage{
		ID:   "ai-500",
		Kind: plans.SimpleKind{Resource: plans.ResourceAIUsage, Amount: 500},
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name string
		pkg  plans.CreditPackage
	}{
		{"missing id", plans.CreditPackage{Kind: plans.SimpleKind{Resource: plans.ResourceAIUsage, Amount: 1}}},
		{"nil kind", plans.CreditPackage{ID: "x"}},
		{"zero amount", plans.CreditPackage{ID: "x", Kind: plans.SimpleKind{Resource: plans.ResourceAIUsage}}},
		{"unknown resource", plans.CreditPackage{ID: "x", Kind: plans.SimpleKind{Resource: "nope", Amount: 1}}},
		{"negative bonus", plans.CreditPackage{ID: "x", Kind: plans.SimpleKind{Resource: plans.ResourceAIUsage, Amount: 1}, BonusAmount: -1}},
		{"negative validity", plans.CreditPackage{ID: "x", Kind: plans.SimpleKind{Resource: plans.ResourceAIUsage, Amount: 1}, ValidityDays: -1}},
		{"empty bundle entry", plans.CreditPackage{ID: "x", Kind: plans.BundleKind{Entries: map[plans.ResourceType]int64{plans.ResourceAIUsage: 0}}}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tc.pkg.Validate(), plans.ErrInvalidPackage)
		})
	}
}

func TestCreditPackageExpiry(t *testing.T) {
	t.Parallel()

	purchased := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	forever := plans.CreditPackage{ID: "x", Kind: plans.SimpleKind{Resource: plans.ResourceAIUsage, Amount: 1}}
	assert.Nil(t, forever.ExpiryFrom(purchased))

	limited := forever
	limited.ValidityDays = 90
	expiry := limited.ExpiryFrom(purchased)
	require.NotNil(t, expiry)
	assert.Equal(t, purchased.AddDate(0, 0, 90), *expiry)
}
