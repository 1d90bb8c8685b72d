package exchange

import (
	"context"
	"errors"
	"time"
)

// DefaultRetryCeiling is the number of additional attempts made after the
// first one fails with a retryable error.
const DefaultRetryCeiling = 3

// RetryPolicy decides whether and how often a failed attempt is repeated.
type RetryPolicy struct {
	// Ceiling is the maximum number of retries; total attempts are Ceiling+1.
	Ceiling int
	// Delay is the pause between attempts. Zero retries immediately.
	Delay time.Duration
	// Retryable selects the errors worth another attempt. Nil means IsRetryable.
	Retryable func(error) bool
}

// DefaultRetryPolicy retries receive failures up to DefaultRetryCeiling times
// without delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Ceiling: DefaultRetryCeiling, Retryable: IsRetryable}
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable == nil {
		return IsRetryable(err)
	}
	return p.Retryable(err)
}

// Do runs attempt until it succeeds, fails with a non-retryable error, or the
// ceiling is exceeded, in which case the last error is returned. Attempts are
// numbered from 1. onRetry, if set, is called before each repeated attempt.
func (p RetryPolicy) Do(ctx context.Context, attempt func(ctx context.Context, n int) error, onRetry func(n int, err error)) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for n := 1; ; n++ {
		err := attempt(ctx, n)
		if err == nil {
			return nil
		}
		if n > p.Ceiling || !p.retryable(err) {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}
		if onRetry != nil {
			onRetry(n+1, err)
		}

		if p.Delay > 0 {
			if timer == nil {
				timer = time.NewTimer(p.Delay)
			} else {
				timer.Reset(p.Delay)
			}
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-timer.C:
			}
		}
	}
}
