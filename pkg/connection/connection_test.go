package connection

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{})

		expected := []time.Duration{
			250 * time.Millisecond,
			500 * time.Millisecond,
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			5 * time.Second,
			5 * time.Second,
		}
		for i, exp := range expected {
			if got := b.Next(); got != exp {
				t.Errorf("attempt %d: delay = %v, want %v", i, got, exp)
			}
		}
		if b.Attempts() != len(expected) {
			t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(expected))
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff()
		d := b.Next()
		if d < InitialBackoff || d > time.Duration(float64(InitialBackoff)*(1+JitterFactor)) {
			t.Errorf("delay %v outside [%v, %v]", d, InitialBackoff, time.Duration(float64(InitialBackoff)*(1+JitterFactor)))
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()
		for i := 0; i < 4; i++ {
			b.Next()
		}
		b.Reset()
		if b.Current() != InitialBackoff || b.Attempts() != 0 {
			t.Errorf("after Reset: current %v attempts %d", b.Current(), b.Attempts())
		}
	})
}

func fastBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Initial: time.Millisecond, Max: 5 * time.Millisecond})
}

func TestWait(t *testing.T) {
	refused := errors.New("connection refused")

	t.Run("SucceedsAfterRetries", func(t *testing.T) {
		calls := 0
		var retries []int
		err := Wait(context.Background(), fastBackoff(), time.Second, func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return refused
			}
			return nil
		}, func(attempt int, delay time.Duration, err error) {
			retries = append(retries, attempt)
		})
		if err != nil {
			t.Fatalf("Wait() = %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
		if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
			t.Errorf("retries = %v, want [1 2]", retries)
		}
	})

	t.Run("ZeroBudgetTriesOnce", func(t *testing.T) {
		calls := 0
		err := Wait(context.Background(), fastBackoff(), 0, func(ctx context.Context) error {
			calls++
			return refused
		}, nil)
		if !errors.Is(err, refused) || calls != 1 {
			t.Errorf("Wait() = %v after %d calls", err, calls)
		}
	})

	t.Run("BudgetExpires", func(t *testing.T) {
		err := Wait(context.Background(), fastBackoff(), 30*time.Millisecond, func(ctx context.Context) error {
			return refused
		}, nil)
		if !errors.Is(err, ErrWaitExpired) || !errors.Is(err, refused) {
			t.Errorf("Wait() = %v, want ErrWaitExpired wrapping the last error", err)
		}
	})

	t.Run("ContextCanceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		err := Wait(ctx, NewBackoffWithConfig(BackoffConfig{Initial: time.Hour}), time.Hour, func(context.Context) error {
			cancel()
			return refused
		}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait() = %v, want context.Canceled", err)
		}
	})
}
