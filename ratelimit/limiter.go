// Package ratelimit provides an in-process sliding-window limiter keyed by
// caller identity. State lives in memory only and resets on restart; running
// several processes multiplies the effective limit.
package ratelimit

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-star/pkg/types"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxKeys bounds the number of tracked keys. The least recently used
// key is dropped first, which forgives its history.
const DefaultMaxKeys = 10000

// Preset names.
const (
	PresetAPI  = "api"
	PresetAI   = "ai"
	PresetAuth = "auth"
)

// Policy is a request budget over a sliding window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Presets returns the built-in policies.
func Presets() map[string]Policy {
	return map[string]Policy{
		PresetAPI:  {Limit: 100, Window: time.Minute},
		PresetAI:   {Limit: 20, Window: time.Minute},
		PresetAuth: {Limit: 10, Window: time.Minute},
	}
}

// Config wires a Limiter.
type Config struct {
	Policy  Policy
	MaxKeys int
	Clock   types.Clock
}

// Limiter tracks call timestamps per key and admits a call only while fewer
// than Limit calls fall inside the trailing window.
type Limiter struct {
	mu     sync.Mutex
	policy Policy
	clock  types.Clock
	keys   *expirable.LRU[string, []time.Time]
}

// New constructs a limiter.
func New(cfg Config) (*Limiter, error) {
	if cfg.Policy.Limit <= 0 {
		return nil, errors.New("ratelimit: limit must be positive")
	}
	if cfg.Policy.Window <= 0 {
		return nil, errors.New("ratelimit: window must be positive")
	}
	size := cfg.MaxKeys
	if size <= 0 {
		size = DefaultMaxKeys
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &Limiter{
		policy: cfg.Policy,
		clock:  clock,
		keys:   expirable.NewLRU[string, []time.Time](size, nil, cfg.Policy.Window),
	}, nil
}

// NewPreset constructs a limiter from a named preset.
func NewPreset(name string) (*Limiter, error) {
	policy, ok := Presets()[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.New("ratelimit: unknown preset " + name)
	}
	return New(Config{Policy: policy})
}

// Policy returns the limiter's policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Allow records a call for key and reports whether it is within budget.
// Rejected calls are not recorded.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	hits := l.live(key, now)
	if len(hits) >= l.policy.Limit {
		l.keys.Add(key, hits)
		return false
	}
	l.keys.Add(key, append(hits, now))
	return true
}

// Remaining reports how many calls key may still make in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	left := l.policy.Limit - len(l.live(key, l.clock.Now()))
	if left < 0 {
		return 0
	}
	return left
}

// Reset forgets key's history.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys.Remove(key)
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	return l.keys.Len()
}

// live drops timestamps that fell out of the window. Callers hold l.mu.
func (l *Limiter) live(key string, now time.Time) []time.Time {
	hits, ok := l.keys.Get(key)
	if !ok {
		return nil
	}
	cutoff := now.Add(-l.policy.Window)
	kept := make([]time.Time, 0, len(hits))
	for _, at := range hits {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}
