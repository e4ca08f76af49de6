package embedder

import (
	"context"
	"fmt"
	"time"
)

const (
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// retryWithBackoff retries fn with exponential backoff. Context cancellation
// aborts the wait immediately.
func retryWithBackoff[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return zero, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}
