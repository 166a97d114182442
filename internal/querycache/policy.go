package querycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Policy holds the staleness and retry settings for cached reads and for mutations.
type Policy struct {
	// StaleTime is how long a fetched value is served without refetching.
	StaleTime time.Duration
	// CacheTime is how long an unused entry survives before Sweep drops it.
	CacheTime time.Duration
	// Retry is the number of extra attempts after a failed read.
	Retry int
	// MutationRetry is the number of extra attempts after a failed mutation.
	MutationRetry int
	// RetryDelay returns the wait before retry attempt n (0-based).
	RetryDelay func(attempt int) time.Duration
	// FetchTimeout bounds a cached read including its retries. Zero means no bound.
	FetchTimeout time.Duration
	// RetryIf reports whether err is worth another attempt. Nil retries everything
	// except context cancellation.
	RetryIf func(err error) bool
}

// DefaultPolicy mirrors the defaults the front-end has always used: 5 minutes stale
// time, 10 minutes cache time, 3 read retries, 1 mutation retry, and a doubling delay
// starting at one second capped at 30 seconds.
func DefaultPolicy() Policy {
	return Policy{
		StaleTime:     5 * time.Minute,
		CacheTime:     10 * time.Minute,
		Retry:         3,
		MutationRetry: 1,
		RetryDelay:    ExponentialDelay(time.Second, 30*time.Second),
	}
}

// ExponentialDelay returns min(base * 2^attempt, max).
func ExponentialDelay(base, max time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		d := base
		for i := 0; i < attempt; i++ {
			d *= 2
			if max > 0 && d >= max {
				return max
			}
		}
		if max > 0 && d > max {
			return max
		}
		return d
	}
}

func (p Policy) delay(attempt int) time.Duration {
	if p.RetryDelay == nil {
		return 0
	}
	return p.RetryDelay(attempt)
}

func (p Policy) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.RetryIf == nil {
		return true
	}
	return p.RetryIf(err)
}

// Retry calls fn until it succeeds, returns a non-retryable error, or retries extra
// attempts have failed. It stops early when ctx is done.
func Retry[T any](ctx context.Context, p Policy, retries int, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == retries || !p.shouldRetry(err) {
			break
		}

		wait := p.delay(attempt)
		log.Debugf("retrying after error (attempt %d/%d, wait %s): %v", attempt+1, retries, wait, err)
		if err := sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}
	return zero, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
