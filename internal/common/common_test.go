package common

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-bridge/internal/service"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		failures  []error
		name      string
		wantErr   error
		attempts  int
		wantCalls int
	}{
		{name: "succeeds first time", attempts: 3, wantCalls: 1},
		{
			name:      "retries unavailable store",
			failures:  []error{ErrStoreUnavailable, ErrStoreUnavailable},
			attempts:  3,
			wantCalls: 3,
		},
		{
			name:      "gives up after max attempts",
			failures:  []error{ErrRateLimit, ErrRateLimit, ErrRateLimit},
			attempts:  2,
			wantCalls: 2,
			wantErr:   ErrMaxRetries,
		},
		{
			name:      "permanent error stops immediately",
			failures:  []error{ErrNotFound},
			attempts:  3,
			wantCalls: 1,
			wantErr:   ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			}, fastRetry(tt.attempts))

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := fastRetry(5)
	opts.InitialDelay = time.Hour
	opts.MaxDelay = time.Hour

	err := WithRetry(ctx, func() error {
		cancel()
		return ErrStoreUnavailable
	}, opts)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("502"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("400"), Retryable: false}))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestUserError(t *testing.T) {
	err := NewUserError("Nothing to reconcile", ErrMissingConfig)

	assert.Equal(t, "Nothing to reconcile: missing configuration", err.Error())
	assert.ErrorIs(t, err, ErrMissingConfig)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "Nothing to reconcile", userErr.UserMessage)
}

func TestExecutionFailure(t *testing.T) {
	err := &ExecutionFailure{Err: ErrStoreUnavailable, ActionID: "a1", Identifier: "AG900"}

	assert.Contains(t, err.Error(), "AG900")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: " WARN ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	require.NoError(t, SetupLogger(slog.LevelDebug, "json"))
	require.NoError(t, SetupLogger(slog.LevelInfo, "console"))
	assert.ErrorIs(t, SetupLogger(slog.LevelInfo, "xml"), ErrInvalidConfig)
}
