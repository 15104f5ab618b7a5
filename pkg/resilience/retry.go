package resilience

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryConfig holds configuration for the exponential backoff retry loop.
type RetryConfig struct {
	MaxAttempts int           // Total attempts before giving up
	BackoffBase float64       // Exponential growth factor
	BackoffUnit time.Duration // Multiplied by BackoffBase^attempt to get the delay
}

// DefaultRetryConfig returns sensible defaults for retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BackoffBase: 2,
		BackoffUnit: time.Second,
	}
}

// ExhaustedError reports that every attempt of a retried call failed.
// It unwraps to the last attempt's error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// RetryableFunc is a function that can be retried.
// It should return a non-nil error to trigger a retry.
type RetryableFunc func(ctx context.Context) error

// Retry executes fn up to cfg.MaxAttempts times. The delay after a
// failed attempt n is BackoffUnit * BackoffBase^n, so a full budget of
// R attempts costs at most sum(B^1 .. B^(R-1)) units of backoff.
//
// Every failure is retried except cancellation of the parent context,
// which stops the loop immediately. When the final attempt fails the
// caller receives an *ExhaustedError wrapping the last error.
func Retry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, fn RetryableFunc) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		// A cancelled parent context is not a transient failure.
		if ctx.Err() != nil {
			return fmt.Errorf("retry: context cancelled: %w", lastErr)
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(attempt, cfg)
		logger.Warn("attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry: context cancelled during backoff: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return &ExhaustedError{Attempts: cfg.MaxAttempts, Err: lastErr}
}

// backoffDelay computes the deterministic exponential delay after the
// given attempt number (1-based).
func backoffDelay(attempt int, cfg RetryConfig) time.Duration {
	return time.Duration(math.Pow(cfg.BackoffBase, float64(attempt)) * float64(cfg.BackoffUnit))
}
