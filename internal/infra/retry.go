package infra

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how a transient storage fault is retried.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first (default: 3)
	BaseDelay   time.Duration // delay before the second attempt (default: 50ms)
	MaxDelay    time.Duration // cap for the exponential delay (default: 1s)
	// AttemptTimeout bounds a single attempt; 0 leaves the caller's deadline alone.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the defaults used for the ledger store.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      50 * time.Millisecond,
		MaxDelay:       time.Second,
		AttemptTimeout: 5 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 50 * time.Millisecond
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// schedule builds the wait sequence between attempts: exponential from
// BaseDelay with ±50% jitter, capped at
// MaxDelay and ending with backoff.Stop after MaxAttempts-1 waits.
func (p RetryPolicy) schedule() backoff.BackOff {
	p = p.normalized()
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.BaseDelay
	expo.MaxInterval = p.MaxDelay
	expo.Multiplier = 2
	expo.RandomizationFactor = 0.5
	expo.MaxElapsedTime = 0

	b := backoff.WithMaxRetries(cappedBackOff{BackOff: expo, max: p.MaxDelay}, uint64(p.MaxAttempts-1))
	b.Reset()
	return b
}

// cappedBackOff keeps jittered intervals at or under max.
type cappedBackOff struct {
	backoff.BackOff
	max time.Duration
}

func (c cappedBackOff) NextBackOff() time.Duration {
	d := c.BackOff.NextBackOff()
	if d != backoff.Stop && d > c.max {
		return c.max
	}
	return d
}

// Retry runs op until it succeeds, returns an error retryable rejects, the
// attempts run out, or ctx is done. The last error is returned as is, so
// the caller decides how to classify exhaustion.
func Retry(ctx context.Context, p RetryPolicy, retryable func(error) bool, op func(ctx context.Context) error) error {
	p = p.normalized()
	waits := backoff.WithContext(p.schedule(), ctx)

	for {
		err := runAttempt(ctx, p.AttemptTimeout, op)
		if err == nil || !retryable(err) {
			return err
		}
		wait := waits.NextBackOff()
		if wait == backoff.Stop {
			return err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func runAttempt(ctx context.Context, timeout time.Duration, op func(ctx context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}
