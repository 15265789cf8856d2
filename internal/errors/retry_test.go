package errors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_RecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return New(ErrCodeNetworkTimeout, "timeout", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustionBecomesFatal(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return New(ErrCodeNetworkTimeout, "timeout", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
	assert.Equal(t, ErrCodeProviderExhausted, GetCode(err))
	assert.True(t, IsFatal(err))
}

func TestRetry_NonRetryableEscalatesImmediately(t *testing.T) {
	calls := 0
	bad := New(ErrCodeInvalidInput, "bad request", nil)
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return bad
	})

	assert.ErrorIs(t, err, bad)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastRetryConfig(), func() error {
		return New(ErrCodeNetworkTimeout, "timeout", nil)
	})

	assert.ErrorIs(t, err, context.Canceled)
}
