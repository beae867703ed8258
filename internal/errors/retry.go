package errors

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Second
	MaxBackoff         = 5 * time.Second
)

// RetryPolicy bounds how often and how long an operation is retried.
// Multiplier 1 (or 0) gives a fixed delay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	// Retryable decides whether an error deserves another attempt. Nil retries everything.
	Retryable func(error) bool
}

// DefaultRetryPolicy matches the quote fetch budget: 3 attempts, 1s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Multiplier:  1,
	}
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or ctx is done.
// The wait between attempts is a timer select, so cancelling ctx interrupts it.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	if fn == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return errors.Join(err, ctxErr)
			}
			return ctxErr
		}

		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		if attempt == attempts {
			return err
		}

		if waitErr := wait(ctx, p.backoff(attempt)); waitErr != nil {
			return errors.Join(err, waitErr)
		}
	}

	return err
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}

	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := time.Duration(float64(p.Delay) * math.Pow(multiplier, float64(attempt-1)))
	if delay > MaxBackoff {
		return MaxBackoff
	}

	return delay
}

func wait(ctx context.Context, d time.Duration) error {
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

// IsRetryable reports whether err is an AppError flagged as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}

	return false
}
