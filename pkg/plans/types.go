package plans

// ResourceType is a countable entitlement category metered per billing period.
type ResourceType string

const (
	ResourceJobPosting        ResourceType = "job_posting"
	ResourceResumeView        ResourceType = "resume_view"
	ResourceDirectApplication ResourceType = "direct_application"
	ResourceAIUsage           ResourceType = "ai_usage"
	ResourceFeaturedJob       ResourceType = "featured_job"
)

// ResourceTypes lists every known resource type.
var ResourceTypes = []ResourceType{
	ResourceJobPosting,
	ResourceResumeView,
	ResourceDirectApplication,
	ResourceAIUsage,
	ResourceFeaturedJob,
}

// Valid reports whether r is a known resource type.
func (r ResourceType) Valid() bool {
	switch r {
	case ResourceJobPosting, ResourceResumeView, ResourceDirectApplication,
		ResourceAIUsage, ResourceFeaturedJob:
		return true
	}
	return false
}

// Unlimited marks a resource with no plan limit. A limit of zero means the
// plan places no cap on the resource; exhaustion checks are skipped entirely.
const Unlimited int64 = 0

// Feature is a plan-specific capability flag.
type Feature string

const (
	FeatureFeaturedJobs    Feature = "featured_jobs"
	FeatureResumeDatabase  Feature = "resume_database"
	FeatureAIMatching      Feature = "ai_matching"
	FeatureCompanyPage     Feature = "company_page"
	FeaturePrioritySupport Feature = "priority_support"
	FeatureAnalytics       Feature = "analytics"
)

// Money is a monetary amount in the smallest currency unit.
// $49.00 USD is Money{Amount: 4900, Currency: "USD"}.
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// BillingInterval is the billing frequency of a plan.
type BillingInterval string

const (
	BillingIntervalNone    BillingInterval = "none" // free plans
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalYearly  BillingInterval = "yearly"
)
