// Package settlement closes expired markets, finalizes their bets, and
// records a settlement reference for every completed sweep.
package settlement

import (
	"context"
	"fmt"
	"time"
)

// Do runs fn up to attempts times, sleeping delay between tries. It stops
// early when the context is cancelled and returns the last error when every
// attempt fails. The name is only used in error messages.
func Do(ctx context.Context, attempts int, delay time.Duration, name string, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("settlement: %s: %w", name, err)
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}

		if i == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("settlement: %s: %w", name, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("settlement: %s failed after %d attempts: %w", name, attempts, lastErr)
}
