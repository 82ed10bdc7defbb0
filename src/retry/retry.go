// Package retry provides bounded retry with exponential backoff for
// transient external failures (registry pushes, kubectl calls). The
// original hand-run pipeline had no retry at all; a failed push meant a
// manual re-run.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	Attempts int           // total attempts, minimum 1
	Backoff  time.Duration // initial delay, doubled after each failure
}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is done.
// The backoff doubles after each failure. Returns the last error wrapped
// with the attempt count.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
