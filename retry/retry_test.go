package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/llmcore/errs"
	"goa.design/llmcore/retry"
)

func TestExecuteWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	m := retry.NewManager(retry.WithMaxRetries(3), retry.WithBaseDelay(time.Millisecond))
	attempts := 0
	result, err := m.ExecuteWithRetry(context.Background(), func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errs.New(errs.KindNetwork, "op", "boom")
		}
		return "ok", nil
	}, retry.IsTransient)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_StopsWhenShouldRetryDeclines(t *testing.T) {
	m := retry.NewManager(retry.WithMaxRetries(5), retry.WithBaseDelay(time.Millisecond))
	attempts := 0
	_, err := m.ExecuteWithRetry(context.Background(), func(ctx context.Context) (any, error) {
		attempts++
		return nil, errs.New(errs.KindValidation, "op", "bad params")
	}, retry.IsTransient)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetry_ExhaustsRetries(t *testing.T) {
	m := retry.NewManager(retry.WithMaxRetries(2), retry.WithBaseDelay(time.Millisecond))
	attempts := 0
	_, err := m.ExecuteWithRetry(context.Background(), func(ctx context.Context) (any, error) {
		attempts++
		return nil, errs.New(errs.KindNetwork, "op", "still down")
	}, retry.IsTransient)
	assert.Error(t, err)
	assert.Equal(t, 3, attempts) // initial + 2 retries
}

func TestIsTransient(t *testing.T) {
	assert.True(t, retry.IsTransient(errs.New(errs.KindNetwork, "op", "x")))
	assert.True(t, retry.IsTransient(errs.New(errs.KindTimeout, "op", "x")))
	assert.True(t, retry.IsTransient(errs.New(errs.KindRateLimit, "op", "x")))
	assert.False(t, retry.IsTransient(errs.New(errs.KindValidation, "op", "x")))
	assert.False(t, retry.IsTransient(errors.New("plain")))
}
