package ratelimit

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-star/pkg/types"
)

// Set holds one limiter per named policy.
type Set struct {
	limiters map[string]*Limiter
}

// NewSet builds limiters for the built-in presets, with overrides replacing
// or adding policies by name.
func NewSet(overrides map[string]Policy, clock types.Clock) (*Set, error) {
	policies := Presets()
	for name, policy := range overrides {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || policy.Limit <= 0 || policy.Window <= 0 {
			continue
		}
		policies[name] = policy
	}
	set := &Set{limiters: make(map[string]*Limiter, len(policies))}
	for name, policy := range policies {
		limiter, err := New(Config{Policy: policy, Clock: clock})
		if err != nil {
			return nil, fmt.Errorf("ratelimit: preset %s: %w", name, err)
		}
		set.limiters[name] = limiter
	}
	return set, nil
}

// Get returns the limiter for name, or nil.
func (s *Set) Get(name string) *Limiter {
	if s == nil {
		return nil
	}
	return s.limiters[strings.ToLower(strings.TrimSpace(name))]
}

// Allow consults the named limiter. Unknown names and a nil set always allow.
func (s *Set) Allow(name, key string) bool {
	limiter := s.Get(name)
	if limiter == nil {
		return true
	}
	return limiter.Allow(key)
}
