// Package pacer enforces a minimum time gap between consecutive write calls
// to the same external surface, keyed per (user, provider). Publishing one
// content item to several platforms in sequence would otherwise trip
// provider-side burst throttling.
package pacer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the minimum gap used by cross-platform publish loops
const DefaultInterval = 2 * time.Second

// Pacer tracks the last write per key and suspends callers until the
// configured interval has elapsed
type Pacer struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration

	// Injectable for tests
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a Pacer with the given minimum interval between writes.
// A non-positive interval falls back to DefaultInterval.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pacer{
		last:     make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Key builds the pacing key for a (user, provider) pair
func Key(userID uint, provider string) string {
	return fmt.Sprintf("%d:%s", userID, provider)
}

// Wait suspends until at least the configured interval has passed since the
// previous Wait for the same key, then records the new call time. The first
// call for a key never waits.
func (p *Pacer) Wait(ctx context.Context, key string) error {
	p.mu.Lock()
	now := p.now()
	var wait time.Duration
	if last, ok := p.last[key]; ok {
		if elapsed := now.Sub(last); elapsed < p.interval {
			wait = p.interval - elapsed
		}
	}
	// Reserve the slot before sleeping so concurrent callers stack up
	// behind each other instead of releasing at the same instant
	p.last[key] = now.Add(wait)
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	return p.sleep(ctx, wait)
}

// Interval returns the configured minimum gap
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
