package service

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy describes a multiplicative backoff schedule.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	Jitter      bool
}

// Retry runs op up to MaxAttempts times. Between attempts it waits BaseDelay
// multiplied by Factor after each failure, honoring ctx cancellation. A failed
// attempt is retried only while retryable(err) holds; a nil retryable means
// every error is retryable. The last error is returned when attempts run out.
func Retry[T any](ctx context.Context, policy RetryPolicy, retryable func(error) bool, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := policy.BaseDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}
		if retryable != nil && !retryable(err) {
			break
		}

		wait := delay
		if policy.Jitter {
			// up to +-10% to avoid thundering herds
			wait += time.Duration((rand.Float64()*2 - 1) * 0.1 * float64(wait))
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * policy.Factor)
	}
	return zero, lastErr
}
