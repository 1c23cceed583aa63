package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/logger"
)

// RetryPolicy bounds how often an operation is attempted.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// DefaultRetryPolicy returns the per-page policy: two attempts, one
// second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Delay: time.Second}
}

// Retry calls fn until it succeeds or the policy is exhausted. fn receives
// the 1-based attempt number. It returns the value of the successful call
// and the number of attempts made. On exhaustion the error is a
// *domain.RetryError wrapping the last failure.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	var zero T
	maxAttempts := max(policy.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, attempt, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, attempt, &domain.RetryError{Attempts: attempt, Err: errors.Join(lastErr, ctx.Err())}
		case <-time.After(policy.Delay):
		}
	}

	return zero, maxAttempts, &domain.RetryError{Attempts: maxAttempts, Err: lastErr}
}

// BestEffort runs a non-critical side effect. Failures are logged under
// name and never reach the caller.
func BestEffort(name string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("%s failed: %v", name, err)
	}
}
