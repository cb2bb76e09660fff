// Package retry implements RetryManager: capped exponential backoff around
// an arbitrary operation, with the caller supplying the retry predicate
// rather than the manager guessing at retryability.
package retry

import (
	"context"
	"math"
	"time"

	"goa.design/llmcore/errs"
)

// Manager executes operations with capped exponential backoff. Unlike a
// fixed retry policy, the decision to retry is delegated entirely to the
// caller-supplied ShouldRetry predicate (spec's shouldRetry(error, attempt)),
// since what counts as retryable differs between a provider chat call, an
// MCP tool call, and a stream acquisition.
type Manager struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxRetries sets the maximum number of attempts beyond the first.
func WithMaxRetries(n int) Option {
	return func(m *Manager) { m.maxRetries = n }
}

// WithBaseDelay overrides the base backoff delay. Tests should use 1ms.
func WithBaseDelay(d time.Duration) Option {
	return func(m *Manager) { m.baseDelay = d }
}

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) Option {
	return func(m *Manager) { m.maxDelay = d }
}

// NewManager builds a Manager with the library's production defaults:
// maxRetries=2, baseDelay=1s, maxDelay=30s.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		maxRetries: 2,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// ShouldRetry decides, given the error from attempt N (0-indexed) and the
// attempt number itself, whether a retry should be attempted.
type ShouldRetry func(err error, attempt int) bool

// ExecuteWithRetry runs op, retrying up to m.maxRetries additional times
// when shouldRetry(err, attempt) returns true. Sleeps baseDelay*2^attempt
// (capped at maxDelay) between attempts. Returns the last error once
// retries are exhausted or shouldRetry declines.
func (m *Manager) ExecuteWithRetry(ctx context.Context, op func(ctx context.Context) (any, error), shouldRetry ShouldRetry) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == m.maxRetries || !shouldRetry(err, attempt) {
			return nil, lastErr
		}

		delay := m.backoffFor(attempt)
		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.KindTimeout, "Manager.ExecuteWithRetry", "context cancelled during backoff", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (m *Manager) backoffFor(attempt int) time.Duration {
	d := time.Duration(float64(m.baseDelay) * math.Pow(2, float64(attempt)))
	if d > m.maxDelay {
		return m.maxDelay
	}
	return d
}

// IsTransient is a reusable building block for ShouldRetry predicates: true
// for network/timeout/rate-limit kinds, the classes spec.md §4.3 calls out
// as always worth retrying regardless of the caller's own content-based
// predicate.
func IsTransient(err error) bool {
	kind, ok := errs.KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case errs.KindNetwork, errs.KindTimeout, errs.KindRateLimit:
		return true
	default:
		return false
	}
}
