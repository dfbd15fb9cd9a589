package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBreaker(now *time.Time) *Breaker {
	return &Breaker{
		States:           NewMemoryStateStore(),
		FailureThreshold: 5,
		ResetTimeout:     5 * time.Minute,
		Clock:            func() time.Time { return *now },
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	breaker := newTestBreaker(&now)
	boom := errors.New("upstream down")

	for i := 0; i < 5; i++ {
		err := breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
			return boom
		})
		require.ErrorIs(t, err, boom)
	}

	state := breaker.State("tenant-a")
	require.NotNil(t, state)
	require.True(t, state.IsOpen)
	require.Equal(t, 5, state.Failures)

	// Calls inside the cooldown window are rejected without running fn.
	called := false
	err := breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
		called = true
		return nil
	})

	var openErr *CircuitOpenError
	require.ErrorAs(t, err, &openErr)
	require.Equal(t, "tenant-a", openErr.TenantID)
	require.True(t, openErr.RetryAfter > 0)
	require.True(t, openErr.RetryAfter <= 5*time.Minute)
	require.False(t, called)
}

func TestBreakerTrialAfterTimeout(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	breaker := newTestBreaker(&now)
	boom := errors.New("upstream down")

	for i := 0; i < 5; i++ {
		_ = breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
			return boom
		})
	}

	now = now.Add(5 * time.Minute)

	err := breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
		return nil
	})
	require.NoError(t, err)

	state := breaker.State("tenant-a")
	require.NotNil(t, state)
	require.False(t, state.IsOpen)
	require.Equal(t, 0, state.Failures)
}

func TestBreakerFailedTrialKeepsWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	breaker := newTestBreaker(&now)
	boom := errors.New("upstream down")

	for i := 0; i < 5; i++ {
		_ = breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
			return boom
		})
	}
	openedAt := breaker.State("tenant-a").OpenedAt

	now = now.Add(6 * time.Minute)

	// Trial fails: the breaker stays open and OpenedAt is untouched, so the
	// already-elapsed window keeps permitting further trials.
	err := breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	state := breaker.State("tenant-a")
	require.True(t, state.IsOpen)
	require.Equal(t, openedAt, state.OpenedAt)

	err = breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	require.False(t, breaker.State("tenant-a").IsOpen)
}

func TestBreakerTenantsAreIndependent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	breaker := newTestBreaker(&now)
	boom := errors.New("upstream down")

	for i := 0; i < 5; i++ {
		_ = breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
			return boom
		})
	}

	err := breaker.Protect(context.Background(), "tenant-b", func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	breaker := newTestBreaker(&now)
	boom := errors.New("upstream down")

	for i := 0; i < 4; i++ {
		_ = breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
			return boom
		})
	}

	require.NoError(t, breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
		return nil
	}))

	// A fifth failure after the reset does not open the circuit.
	_ = breaker.Protect(context.Background(), "tenant-a", func(context.Context) error {
		return boom
	})
	state := breaker.State("tenant-a")
	require.False(t, state.IsOpen)
	require.Equal(t, 1, state.Failures)
}
