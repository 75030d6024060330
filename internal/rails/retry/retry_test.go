package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossrail/internal/rails"
)

func transientErr() error {
	return rails.NewRailError(rails.ErrorTimeout, "test", rails.OpPush, "timed out", nil)
}

func fatalErr() error {
	return rails.NewRailError(rails.ErrorProviderRejected, "test", rails.OpPush, "rejected", nil)
}

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestBackoffDelay_Exponential(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second}
	assert.Equal(t, time.Second, p.BackoffDelay(1))
	assert.Equal(t, 2*time.Second, p.BackoffDelay(2))
	assert.Equal(t, 4*time.Second, p.BackoffDelay(3))
}

func TestShouldRetry(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.ShouldRetry(transientErr(), 1))
	assert.True(t, p.ShouldRetry(transientErr(), 3))
	assert.False(t, p.ShouldRetry(transientErr(), 4), "past the attempt ceiling")
	assert.False(t, p.ShouldRetry(fatalErr(), 1))
	assert.True(t, p.ShouldRetry(context.DeadlineExceeded, 1), "per-attempt deadline expiry is transient")
}

func TestDo_RetryCeiling(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return transientErr()
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls, "maxAttempts+1 total tries")
	assert.True(t, IsExhausted(err))

	var ee *ExhaustedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 4, ee.Attempts)
	assert.True(t, rails.IsRetryable(ee.Last), "last underlying error preserved")
}

func TestDo_FatalSurfacesImmediately(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return fatalErr()
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsExhausted(err), "fatal is distinguishable from exhausted")
	assert.Equal(t, rails.ErrorProviderRejected, rails.Category(err))
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return transientErr()
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Policy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return transientErr()
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "no retry once the caller is gone")
	assert.False(t, IsExhausted(err))
}

func TestDo_MintInternalErrorRetries(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return rails.NewRailError(rails.ErrorInternal, "bridge", rails.OpMint, "500", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls, "5xx on mint stays retryable")
	assert.True(t, IsExhausted(err))
}

func TestDo_InternalErrorOnPushIsFatal(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return rails.NewRailError(rails.ErrorInternal, "provider", rails.OpPush, "500", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsExhausted(err))
}
