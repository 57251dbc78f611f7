package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
)

// RetryPolicy retries an operation whenever it reports a rate-limit
// condition, waiting a uniformly random duration between MinWait and MaxWait
// before each new attempt. Any other error passes through untouched.
type RetryPolicy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration

	// sleep is injectable for tests; nil means a context-aware timer.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a policy with the given bounds.
func NewRetryPolicy(maxAttempts int, minWait, maxWait time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		MinWait:     minWait,
		MaxWait:     maxWait,
	}
}

// Do runs fn until it succeeds, fails with a non-rate-limit error, or all
// attempts are spent. Exhaustion yields ErrRateLimitExhausted wrapping the
// last provider error.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, contracts.ErrRateLimited) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		if err := sleep(ctx, p.wait()); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: %d attempts, last error: %v",
		contracts.ErrRateLimitExhausted, p.MaxAttempts, lastErr)
}

// wait picks a uniformly random duration in [MinWait, MaxWait].
func (p RetryPolicy) wait() time.Duration {
	if p.MaxWait <= p.MinWait {
		return p.MinWait
	}
	return p.MinWait + time.Duration(rand.Int63n(int64(p.MaxWait-p.MinWait)))
}

// sleepCtx sleeps for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
