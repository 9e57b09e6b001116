package connection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWaitExpired is returned by Wait when the budget ran out.
var ErrWaitExpired = errors.New("gave up waiting")

// ConnectFunc makes one connection attempt.
type ConnectFunc func(ctx context.Context) error

// RetryFunc observes a failed attempt before the delay.
type RetryFunc func(attempt int, delay time.Duration, err error)

// Wait calls fn until it succeeds, ctx is done or budget has elapsed.
// A zero budget makes a single attempt. The error of the last attempt is
// wrapped into the returned error.
func Wait(ctx context.Context, b *Backoff, budget time.Duration, fn ConnectFunc, onRetry RetryFunc) error {
	err := fn(ctx)
	if err == nil || budget <= 0 {
		return err
	}
	deadline := time.Now().Add(budget)

	for {
		delay := b.Next()
		if remaining := time.Until(deadline); delay > remaining {
			if remaining <= 0 {
				return fmt.Errorf("%w after %s: %w", ErrWaitExpired, budget, err)
			}
			delay = remaining
		}
		if onRetry != nil {
			onRetry(b.Attempts(), delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err = fn(ctx); err == nil {
			b.Reset()
			return nil
		}
	}
}
