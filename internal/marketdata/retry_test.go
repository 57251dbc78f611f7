package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
)

// instantSleep records requested waits without actually sleeping.
func instantSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestRetryPolicySucceedsFirstAttempt(t *testing.T) {
	var waits []time.Duration
	policy := NewRetryPolicy(10, 30*time.Second, 90*time.Second)
	policy.sleep = instantSleep(&waits)

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestRetryPolicyRetriesOnRateLimit(t *testing.T) {
	var waits []time.Duration
	policy := NewRetryPolicy(10, 30*time.Second, 90*time.Second)
	policy.sleep = instantSleep(&waits)

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 4 {
			return contracts.ErrRateLimited
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	require.Len(t, waits, 3)

	// Randomized waits stay inside the configured bounds.
	for _, w := range waits {
		assert.GreaterOrEqual(t, w, 30*time.Second)
		assert.LessOrEqual(t, w, 90*time.Second)
	}
}

func TestRetryPolicyPassesThroughOtherErrors(t *testing.T) {
	var waits []time.Duration
	policy := NewRetryPolicy(10, time.Second, 2*time.Second)
	policy.sleep = instantSleep(&waits)

	boom := errors.New("boom")
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestRetryPolicyExhaustion(t *testing.T) {
	var waits []time.Duration
	policy := NewRetryPolicy(10, time.Second, 2*time.Second)
	policy.sleep = instantSleep(&waits)

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return contracts.ErrRateLimited
	})

	assert.ErrorIs(t, err, contracts.ErrRateLimitExhausted)
	assert.Equal(t, 10, calls)
	assert.Len(t, waits, 9) // no wait after the final attempt
}

func TestRetryPolicyContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := NewRetryPolicy(10, time.Second, 2*time.Second)
	policy.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := policy.Do(ctx, func() error {
		return contracts.ErrRateLimited
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicyWaitDegenerateBounds(t *testing.T) {
	policy := NewRetryPolicy(3, time.Minute, time.Minute)
	assert.Equal(t, time.Minute, policy.wait())
}
