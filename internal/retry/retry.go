package retry

import (
	"context"
	"fmt"
	"time"
)

// maxDelay caps the exponential growth between attempts.
const maxDelay = 5 * time.Second

// DoWithRetry runs fn up to attempts times, doubling the pause after each
// failure. It gives up early when ctx is done and returns the last error
// from fn annotated with the attempt count.
func DoWithRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := baseDelay
	for i := 1; i <= attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxDelay)
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
