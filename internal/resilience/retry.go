package resilience

import (
	"context"
	"fmt"
	"time"
)

// Retry runs fn up to maxAttempts times, sleeping baseDelay*2^attempt
// between attempts (attempt counted from zero). The last failure is
// returned once attempts are exhausted. A cancelled context aborts the
// wait and returns the context error wrapping the last failure.
//
// This is a library primitive for agent bodies; the execution engine does
// not apply it to runs automatically.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := range maxAttempts {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}

		if attempt == maxAttempts-1 {
			break
		}

		delay := baseDelay << attempt
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after attempt %d: %w (last error: %v)", attempt+1, ctx.Err(), lastErr)
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
}
