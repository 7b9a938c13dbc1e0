package plans

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// inMemSource serves plans from a mutex-guarded map.
type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns a Source backed by a deep copy of the given plans.
func NewInMemSource(catalog map[string]Plan) Source {
	return &inMemSource{plans: clonePlans(catalog)}
}

// Load returns a deep copy so callers cannot mutate shared state.
func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePlans(s.plans), nil
}

func clonePlans(in map[string]Plan) map[string]Plan {
	out := make(map[string]Plan, len(in))
	for id, plan := range in {
		plan.Limits = maps.Clone(plan.Limits)
		plan.Features = slices.Clone(plan.Features)
		out[id] = plan
	}
	return out
}
