// Package retry provides a bounded-attempt retry executor with a pluggable
// transient-error predicate and a fixed inter-attempt delay.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config bounds a retried operation
type Config struct {
	MaxAttempts int           // Total attempts, including the first
	Delay       time.Duration // Fixed sleep between attempts
}

// Predicate classifies an error as transient (retry) or permanent (rethrow)
type Predicate func(error) bool

// Any treats every error as transient
func Any(error) bool { return true }

// Do executes op up to cfg.MaxAttempts times. A failure is retried only when
// retryable classifies it as transient and attempts remain; permanent errors
// are returned immediately without consuming further attempts. The context is
// checked during the inter-attempt sleep so a cancelled caller does not wait
// out the full budget.
func Do(ctx context.Context, cfg Config, retryable Predicate, op func() error) error {
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	if retryable == nil {
		retryable = Any
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		// Permanent errors short-circuit
		if !retryable(lastErr) {
			return lastErr
		}

		// Out of attempts
		if attempt == cfg.MaxAttempts {
			break
		}

		if err := sleep(ctx, cfg.Delay); err != nil {
			return err
		}
	}

	return lastErr
}

// sleep waits for d or until the context is done, whichever comes first
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
