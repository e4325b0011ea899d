package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func instantConfig(attempts int) *Config {
	return &Config{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Multiplier:  2,
		MaxDelay:    time.Second,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func TestRetry_SuccessOnFirstTry(t *testing.T) {
	ctx := context.Background()
	retrier := NewRetrier(instantConfig(3))

	counter := 0
	err := retrier.Do(ctx, func() error {
		counter++
		return nil
	}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 1 {
		t.Errorf("expected 1 attempt, got %d", counter)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	ctx := context.Background()
	retrier := NewRetrier(instantConfig(3))

	counter := 0
	err := retrier.Do(ctx, func() error {
		counter++
		if counter < 2 {
			return errors.New("temporary error")
		}
		return nil
	}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 2 {
		t.Errorf("expected 2 attempts, got %d", counter)
	}
}

func TestRetry_MaxAttemptsExceeded(t *testing.T) {
	ctx := context.Background()
	retrier := NewRetrier(instantConfig(3))

	expectedErr := errors.New("permanent error")
	counter := 0
	err := retrier.Do(ctx, func() error {
		counter++
		return expectedErr
	}, nil, nil)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if counter != 3 {
		t.Errorf("expected 3 attempts, got %d", counter)
	}
}

func TestRetry_RetryIfStopsEarly(t *testing.T) {
	ctx := context.Background()
	retrier := NewRetrier(instantConfig(5))

	fatal := errors.New("not retryable")
	counter := 0
	err := retrier.Do(ctx, func() error {
		counter++
		return fatal
	}, func(err error) bool { return false }, nil)
	if !errors.Is(err, fatal) {
		t.Errorf("expected %v, got %v", fatal, err)
	}
	if counter != 1 {
		t.Errorf("expected 1 attempt when retryIf refuses, got %d", counter)
	}
}

func TestRetry_OnRetryFiresBetweenAttempts(t *testing.T) {
	ctx := context.Background()
	retrier := NewRetrier(instantConfig(3))

	var attempts []int
	_ = retrier.Do(ctx, func() error {
		return errors.New("error")
	}, nil, func(attempt int, err error) {
		attempts = append(attempts, attempt)
	})

	// onRetry fires before each backoff, so max attempts - 1 times
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected onRetry for attempts [1 2], got %v", attempts)
	}
}

func TestRetry_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := NewDefaultConfig()
	retrier := NewRetrier(config)

	err := retrier.Do(ctx, func() error {
		cancel() // cancellation surfaces at the next sleep
		return errors.New("operation error after cancel")
	}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_BackoffGrowsAndCaps(t *testing.T) {
	ctx := context.Background()
	var delays []time.Duration
	config := &Config{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    300 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}
	retrier := NewRetrier(config)

	_ = retrier.Do(ctx, func() error { return errors.New("error") }, nil, nil)

	want := []time.Duration{100, 200, 300, 300}
	if len(delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), delays)
	}
	for i, w := range want {
		if delays[i] != w*time.Millisecond {
			t.Errorf("sleep %d: expected %v, got %v", i, w*time.Millisecond, delays[i])
		}
	}
}
