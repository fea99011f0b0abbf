package policy

import (
	"sync"

	"github.com/AndreyAkinshin/testyl/internal/tests"
)

// Resolver computes the effective policy for tests under one profile.
//
// Resolution is deterministic and side-effect-free given the immutable
// profile, so results are cached per test: the same test's policy is
// resolved at most once per run. The cache is safe for concurrent use.
type Resolver struct {
	profile *Profile

	mu    sync.Mutex
	cache map[string]Policy
}

// NewResolver creates a resolver for the given profile.
func NewResolver(profile *Profile) *Resolver {
	return &Resolver{
		profile: profile,
		cache:   make(map[string]Policy),
	}
}

// Profile returns the profile this resolver resolves against.
func (r *Resolver) Profile() *Profile {
	return r.profile
}

// Resolve returns the effective policy for the test: the profile base with
// every matching override patch merged on top in declaration order,
// field-by-field. If no override matches, the base policy stands unchanged.
func (r *Resolver) Resolve(id tests.TestID) Policy {
	key := id.Key()

	r.mu.Lock()
	if p, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return p
	}
	r.mu.Unlock()

	p := r.resolve(id)

	r.mu.Lock()
	r.cache[key] = p
	r.mu.Unlock()
	return p
}

func (r *Resolver) resolve(id tests.TestID) Policy {
	p := r.profile.Base
	for _, rule := range r.profile.Overrides {
		if rule.Filter.Matches(id) {
			rule.Patch.Apply(&p)
		}
	}
	return p
}
