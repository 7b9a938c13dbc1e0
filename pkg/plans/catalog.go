package plans

import (
	"context"
	"errors"
	"fmt"
)

// Source loads the plan catalog from its backing store.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// Catalog is a validated, read-only view over the configured plans and
// credit packages. It is immutable after construction and safe for
// concurrent use.
type Catalog struct {
	plans    map[string]Plan
	packages map[string]CreditPackage
}

// NewCatalog loads and validates plans from src. Packages are optional.
func NewCatalog(ctx context.Context, src Source, packages ...CreditPackage) (*Catalog, error) {
	if src == nil {
		panic("plans: Source is required")
	}

	loaded, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}
	if loaded == nil {
		loaded = make(map[string]Plan)
	}

	if err := validatePlans(loaded); err != nil {
		return nil, err
	}

	pkgs := make(map[string]CreditPackage, len(packages))
	for _, pkg := range packages {
		if err := pkg.Validate(); err != nil {
			return nil, errors.Join(err, fmt.Errorf("package %q", pkg.ID))
		}
		pkgs[pkg.ID] = pkg
	}

	return &Catalog{plans: loaded, packages: pkgs}, nil
}

// Plan returns the plan with the given ID, inactive plans included.
func (c *Catalog) Plan(id string) (Plan, error) {
	plan, exists := c.plans[id]
	if !exists {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

// ActivePlan returns the plan with the given ID only if it accepts new
// subscriptions.
func (c *Catalog) ActivePlan(id string) (Plan, error) {
	plan, err := c.Plan(id)
	if err != nil {
		return Plan{}, err
	}
	if !plan.Active {
		return Plan{}, ErrPlanInactive
	}
	return plan, nil
}

// Package returns the credit package with the given ID.
func (c *Catalog) Package(id string) (CreditPackage, error) {
	pkg, exists := c.packages[id]
	if !exists {
		return CreditPackage{}, ErrPackageNotFound
	}
	return pkg, nil
}

// Plans returns a copy of all plans keyed by ID.
func (c *Catalog) Plans() map[string]Plan {
	out := make(map[string]Plan, len(c.plans))
	for id, plan := range c.plans {
		out[id] = plan
	}
	return out
}

func validatePlans(catalog map[string]Plan) error {
	for id, plan := range catalog {
		if plan.ID != id {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", id, plan.ID))
		}
		if plan.TrialDays < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative trial days: %d", id, plan.TrialDays))
		}
		for res, limit := range plan.Limits {
			if !res.Valid() {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %s has unknown resource %q", id, res))
			}
			if limit < 0 {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %s has negative limit for %s: %d", id, res, limit))
			}
		}
	}
	return nil
}
