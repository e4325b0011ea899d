package retry

import (
	"context"
	"time"
)

type Operation = func() error

// Config bounds the retry loop. Sleep is injectable so tests run
// without wall-clock delays.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    10 * time.Second,
	}
}

type Retrier struct {
	config *Config
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetrier(config *Config) *Retrier {
	sleep := config.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return &Retrier{config: config, sleep: sleep}
}

func NewDefaultRetrier() *Retrier {
	return NewRetrier(NewDefaultConfig())
}

// Do runs op up to MaxAttempts times. RetryIf decides whether a
// failure is worth another attempt; a nil predicate retries every
// failure. OnRetry fires before each backoff sleep (used for
// credential rotation).
func (r *Retrier) Do(ctx context.Context, op Operation, retryIf func(error) bool, onRetry func(attempt int, err error)) error {
	var err error
	delay := r.config.BaseDelay

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		if attempt == r.config.MaxAttempts {
			return err
		}
		if retryIf != nil && !retryIf(err) {
			return err
		}

		if onRetry != nil {
			onRetry(attempt, err)
		}

		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}

		delay = time.Duration(float64(delay) * r.config.Multiplier)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
