// Package retry runs an operation with a bounded number of retries and an
// exponentially growing delay between attempts.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialDelay   = 1000 * time.Millisecond
	DefaultAttemptTimeout = 10 * time.Second
)

// Policy describes how many times an operation is retried and how long to wait.
// A zero AttemptTimeout leaves each attempt bounded only by the caller's context.
type Policy struct {
	MaxRetries     uint
	InitialDelay   time.Duration
	AttemptTimeout time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     DefaultMaxRetries,
		InitialDelay:   DefaultInitialDelay,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Do invokes op up to MaxRetries+1 times. After failed attempt k it waits
// InitialDelay * 2^k. When every attempt fails the error of the last one is
// returned as is.
func Do[T any](ctx context.Context, p Policy, label string, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0

	operation := func() (T, error) {
		if attempt > 0 {
			slog.Info("Retry attempt", "attempt", attempt, "max_retries", p.MaxRetries, "operation", label)
		}
		attempt++

		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}
		return op(attemptCtx)
	}

	notify := func(err error, delay time.Duration) {
		slog.Warn("Attempt failed, retrying",
			"operation", label,
			"attempt", attempt,
			"retry_in", delay,
			"error", err)
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(newExponential(p.InitialDelay, p.MaxRetries)),
		backoff.WithMaxTries(p.MaxRetries+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if ctxErr := context.Cause(ctx); ctxErr != nil && errors.Is(err, ctxErr) {
			slog.Warn("Retry aborted by context", "operation", label, "attempts", attempt, "error", err)
			return result, err
		}
		slog.Error("All retries failed", "operation", label, "attempts", attempt, "error", err)
		return result, err
	}
	return result, nil
}

func newExponential(initial time.Duration, maxRetries uint) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	// never clamp below the largest delay the attempt budget can reach
	b.MaxInterval = initial << min(maxRetries, 30)
	return b
}
