package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rohmanhakim/site-crawler/pkg/failure"
)

// Retry executes fn up to MaxAttempts times, sleeping with exponential
// backoff plus jitter between attempts. Only retryable errors trigger another
// attempt. Cancelling ctx aborts the wait and returns the last error.
func Retry[T any](
	ctx context.Context,
	retryParam RetryParam,
	fn func() (T, failure.ClassifiedError),
) (T, failure.ClassifiedError) {
	var lastErr failure.ClassifiedError
	var zero T

	if retryParam.MaxAttempts < 1 {
		return zero, &RetryError{
			Message:   "max attempt cannot be 0",
			Cause:     ErrZeroAttempt,
			Retryable: false,
		}
	}

	rng := rand.New(rand.NewSource(retryParam.RandomSeed))

	for attempt := 1; attempt <= retryParam.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !failure.IsRetryable(err) {
			return zero, err
		}
		if attempt == retryParam.MaxAttempts {
			break
		}

		delay := retryParam.delay(attempt, rng)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, &RetryError{
				Message:   fmt.Sprintf("cancelled after %d attempts. Last error: %v", attempt, lastErr),
				Cause:     ErrCancelled,
				Retryable: false,
				Last:      lastErr,
			}
		case <-timer.C:
		}
	}

	return zero, &RetryError{
		Message:   fmt.Sprintf("exhausted %d attempts. Last error: %v", retryParam.MaxAttempts, lastErr),
		Cause:     ErrExhaustedAttempts,
		Retryable: false,
		Last:      lastErr,
	}
}
