// Package ratelimit enforces per-user lookup quotas.
//
// Quotas are fixed windows: each (user, category) pair may perform at most
// Max lookups per Window, where windows are aligned to multiples of Window
// since the Unix epoch. A daily cap is Window = 24h.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/First008/jester/internal/intent"
)

// ErrRateLimitExceeded indicates the quota for a user and category is exhausted
var ErrRateLimitExceeded = errors.New("lookup quota exceeded")

// Limiter decides whether a lookup may proceed
type Limiter interface {
	// Allow records one attempt for (userID, category) and reports whether
	// it is within quota
	Allow(ctx context.Context, userID string, category intent.Category) (bool, error)
}

// Policy is a quota: Max lookups per Window
type Policy struct {
	Max    int
	Window time.Duration
}

// Validate checks the policy is usable
func (p Policy) Validate() error {
	if p.Max <= 0 {
		return fmt.Errorf("quota max must be greater than 0")
	}
	if p.Window <= 0 {
		return fmt.Errorf("quota window must be greater than 0")
	}
	return nil
}

// windowStart returns the start of the window containing now
func (p Policy) windowStart(now time.Time) time.Time {
	return now.Truncate(p.Window)
}

// Policies holds the default quota and optional per-category overrides
type Policies struct {
	Default     Policy
	PerCategory map[intent.Category]Policy
}

// For returns the policy that applies to a category
func (ps Policies) For(category intent.Category) Policy {
	if p, ok := ps.PerCategory[category]; ok {
		return p
	}
	return ps.Default
}

// Validate checks every policy
func (ps Policies) Validate() error {
	if err := ps.Default.Validate(); err != nil {
		return err
	}
	for category, p := range ps.PerCategory {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", category, err)
		}
	}
	return nil
}

func key(userID string, category intent.Category, start time.Time) string {
	return fmt.Sprintf("%s:%s:%d", category, userID, start.Unix())
}

// MemoryLimiter keeps counters in process memory
type MemoryLimiter struct {
	mu       sync.Mutex
	policies Policies
	counters map[string]*window
	now      func() time.Time
}

type window struct {
	count int
	end   time.Time
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter(policies Policies) *MemoryLimiter {
	return &MemoryLimiter{
		policies: policies,
		counters: make(map[string]*window),
		now:      time.Now,
	}
}

// Allow implements Limiter
func (l *MemoryLimiter) Allow(ctx context.Context, userID string, category intent.Category) (bool, error) {
	policy := l.policies.For(category)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	start := policy.windowStart(now)
	k := key(userID, category, start)

	w, ok := l.counters[k]
	if !ok {
		w = &window{end: start.Add(policy.Window)}
		l.counters[k] = w
	}

	if w.count >= policy.Max {
		return false, nil
	}
	w.count++

	return true, nil
}

// Remaining returns how many lookups are left in the current window
func (l *MemoryLimiter) Remaining(userID string, category intent.Category) int {
	policy := l.policies.For(category)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.counters[key(userID, category, policy.windowStart(l.now()))]
	if !ok {
		return policy.Max
	}
	return policy.Max - w.count
}

// prune drops expired windows. Caller holds mu.
func (l *MemoryLimiter) prune(now time.Time) {
	for k, w := range l.counters {
		if !now.Before(w.end) {
			delete(l.counters, k)
		}
	}
}
