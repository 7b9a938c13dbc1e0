// Package plans defines the subscription plan catalog and purchasable credit
// packages for the job-board metering core.
//
// A Plan caps each countable resource per billing period. A limit of zero
// (Unlimited) means the plan does not cap that resource at all; a resource
// missing from the Limits map is not available on the plan.
//
// Catalog is the validated, immutable view consumed by the entitlement
// engine. Plans can come from an in-memory map or a YAML file:
//
//	src := plans.NewFileSource("plans.yaml")
//	catalog, err := plans.NewCatalog(ctx, src)
//
// Credit packages are either simple (one resource) or bundles; both expose
// their grants through the PackageKind variant so the crediting code can
// treat them uniformly.
package plans
