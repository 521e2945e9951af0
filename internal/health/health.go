// Package health tracks the readiness of the scoring service's dependencies.
//
// Subsystems such as the intel database, the model artifact loader, and the
// chain data providers register a probe at startup; the readiness endpoint
// runs them all and degrades when any probe reports an error.
package health

import (
	"context"
	"sync"
)

// Check probes one dependency. A nil return means the dependency is usable.
type Check func(ctx context.Context) error

// Status is the serialized outcome of a single check.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Registry holds named checks and runs them in registration order.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	checks map[string]Check
}

func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]Check)}
}

// Register adds a check under the given name. Registering the same name
// again replaces the previous check without changing its position.
func (r *Registry) Register(name string, check Check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.checks[name]; !exists {
		r.order = append(r.order, name)
	}
	r.checks[name] = check
}

// CheckAll runs every registered check against ctx and reports whether all
// of them passed, along with the per-subsystem outcomes.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	order := make([]string, len(r.order))
	copy(order, r.order)
	checks := make(map[string]Check, len(r.checks))
	for name, c := range r.checks {
		checks[name] = c
	}
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, 0, len(order))
	for _, name := range order {
		st := Status{Name: name, Healthy: true}
		if err := checks[name](ctx); err != nil {
			st.Healthy = false
			st.Detail = err.Error()
			healthy = false
		}
		statuses = append(statuses, st)
	}
	return healthy, statuses
}
