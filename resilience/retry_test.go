package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

type statusErr struct{ retryable bool }

func (e *statusErr) Error() string   { return "status" }
func (e *statusErr) Retryable() bool { return e.retryable }

func fastConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
		RetryIf:      IsRetryable,
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := RetryWithConfig(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d", calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	final := &statusErr{retryable: false}
	err := RetryWithConfig(context.Background(), fastConfig(), func() error {
		calls++
		return final
	})
	if !errors.Is(err, final) {
		t.Fatalf("got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}

func TestRetryExhaustionWrapsLastError(t *testing.T) {
	last := errors.New("still down")
	err := RetryWithConfig(context.Background(), fastConfig(), func() error {
		return last
	})
	var exceeded ErrMaxRetriesExceeded
	if !errors.As(err, &exceeded) {
		t.Fatalf("got %T: %v", err, err)
	}
	if exceeded.Attempts != 3 {
		t.Errorf("attempts = %d", exceeded.Attempts)
	}
	if !errors.Is(err, last) {
		t.Error("last error not wrapped")
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithConfig(ctx, fastConfig(), func() error {
		t.Fatal("fn ran on canceled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"self-declared retryable", &statusErr{retryable: true}, true},
		{"self-declared final", &statusErr{retryable: false}, false},
		{"unknown error", errors.New("boom"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Errorf("IsRetryable(%v) = %v", tc.err, got)
			}
		})
	}
}
