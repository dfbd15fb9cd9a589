package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/serpwatch/serpwatch/internal/core"
	"github.com/serpwatch/serpwatch/internal/core/provider"
)

type fakeQuotaStore struct {
	counter  *core.QuotaCounter
	getErr   error
	tracked  int
	trackErr error
}

func (f *fakeQuotaStore) GetQuota(ctx context.Context, tenantID string, apiType core.APIType, day time.Time) (*core.QuotaCounter, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.counter, nil
}

func (f *fakeQuotaStore) TrackUsage(ctx context.Context, tenantID string, apiType core.APIType, day time.Time, count, defaultAllocation int) error {
	if f.trackErr != nil {
		return f.trackErr
	}
	f.tracked += count
	if f.counter == nil {
		f.counter = &core.QuotaCounter{TenantID: tenantID, APIType: apiType, Allocated: defaultAllocation}
	}
	f.counter.Used += count
	return nil
}

func newTestRetrier(quota *fakeQuotaStore, slept *[]time.Duration) *Retrier {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Retrier{
		Quota:            quota,
		DailyAllocation:  25000,
		ProceedThreshold: 10,
		QuotaCooldown:    5 * time.Minute,
		RetryCount:       5,
		MinDelay:         time.Second,
		MaxDelay:         time.Minute,
		Clock:            func() time.Time { return fixed },
		Sleep: func(ctx context.Context, d time.Duration) error {
			if slept != nil {
				*slept = append(*slept, d)
			}
			return nil
		},
	}
}

func TestRetrierDelayBounds(t *testing.T) {
	retrier := &Retrier{MinDelay: time.Second, MaxDelay: time.Minute}

	for attempt := 0; attempt < 6; attempt++ {
		base := time.Second * time.Duration(1<<uint(attempt))
		lower := time.Duration(float64(base) * 0.9)
		upper := time.Duration(float64(base) * 1.1)
		if upper > time.Minute {
			upper = time.Minute
		}

		for i := 0; i < 200; i++ {
			delay := retrier.delayFor(attempt)
			require.GreaterOrEqual(t, delay, lower, "attempt %d", attempt)
			require.LessOrEqual(t, delay, upper, "attempt %d", attempt)
		}
	}
}

func TestRetrierStatusDefaultsWhenNoRow(t *testing.T) {
	retrier := newTestRetrier(&fakeQuotaStore{}, nil)

	status, err := retrier.Status(context.Background(), "tenant-a", core.APITypeSearchAnalytics)
	require.NoError(t, err)
	require.Equal(t, 25000, status.Allocated)
	require.Equal(t, 0, status.Used)
	require.Equal(t, 25000, status.Remaining)
	require.True(t, status.CanProceed)
	require.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), status.NextResetAt)
}

func TestRetrierQuotaExhausted(t *testing.T) {
	quota := &fakeQuotaStore{counter: &core.QuotaCounter{
		TenantID:  "tenant-a",
		APIType:   core.APITypeSearchAnalytics,
		Allocated: 25000,
		Used:      24995,
	}}

	var slept []time.Duration
	retrier := newTestRetrier(quota, &slept)

	calls := 0
	err := retrier.Run(context.Background(), "tenant-a", core.APITypeSearchAnalytics, true, func(context.Context) error {
		calls++
		return nil
	})

	var exhausted *QuotaExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, "tenant-a", exhausted.TenantID)
	require.Equal(t, 5, exhausted.Remaining)
	require.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), exhausted.NextResetAt)

	// Exactly one cooldown pause before the re-check, and fn never ran.
	require.Equal(t, []time.Duration{5 * time.Minute}, slept)
	require.Equal(t, 0, calls)
}

func TestRetrierCooldownRecheckRecovers(t *testing.T) {
	quota := &fakeQuotaStore{counter: &core.QuotaCounter{
		Allocated: 25000,
		Used:      24995,
	}}

	var slept []time.Duration
	retrier := newTestRetrier(quota, &slept)
	retrier.Sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		// Budget frees up during the cooldown (date rollover upstream).
		quota.counter.Used = 0
		return nil
	}

	calls := 0
	err := retrier.Run(context.Background(), "tenant-a", core.APITypeSearchAnalytics, false, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, []time.Duration{5 * time.Minute}, slept)
}

func TestRetrierRetriesRateLimitedOnly(t *testing.T) {
	t.Run("rate limited errors consume retries", func(t *testing.T) {
		var slept []time.Duration
		retrier := newTestRetrier(&fakeQuotaStore{}, &slept)

		calls := 0
		err := retrier.Run(context.Background(), "tenant-a", core.APITypeSearchAnalytics, false, func(context.Context) error {
			calls++
			if calls < 3 {
				return &provider.CallError{StatusCode: 429, Message: "too many requests"}
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
		require.Len(t, slept, 2)
	})

	t.Run("quota message without status is retried", func(t *testing.T) {
		retrier := newTestRetrier(&fakeQuotaStore{}, nil)

		calls := 0
		err := retrier.Run(context.Background(), "tenant-a", core.APITypeSearchAnalytics, false, func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("Quota exceeded for requests per minute")
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 2, calls)
	})

	t.Run("non-retryable error propagates immediately", func(t *testing.T) {
		var slept []time.Duration
		retrier := newTestRetrier(&fakeQuotaStore{}, &slept)

		boom := &provider.CallError{StatusCode: 400, Message: "invalid request body"}
		calls := 0
		err := retrier.Run(context.Background(), "tenant-a", core.APITypeSearchAnalytics, false, func(context.Context) error {
			calls++
			return boom
		})

		var callErr *provider.CallError
		require.ErrorAs(t, err, &callErr)
		require.Equal(t, 400, callErr.StatusCode)
		require.Equal(t, 1, calls)
		require.Empty(t, slept)
	})

	t.Run("exhausted retries propagate last error", func(t *testing.T) {
		var slept []time.Duration
		retrier := newTestRetrier(&fakeQuotaStore{}, &slept)

		calls := 0
		err := retrier.Run(context.Background(), "tenant-a", core.APITypeSearchAnalytics, false, func(context.Context) error {
			calls++
			return &provider.CallError{StatusCode: 429, Message: fmt.Sprintf("rate limited, call %d", calls)}
		})

		var callErr *provider.CallError
		require.ErrorAs(t, err, &callErr)
		require.Contains(t, callErr.Message, "call 6")
		require.Equal(t, 6, calls)
		require.Len(t, slept, 5)
	})
}

func TestRetrierTracksUsageOnSuccess(t *testing.T) {
	quota := &fakeQuotaStore{}
	retrier := newTestRetrier(quota, nil)

	for i := 0; i < 3; i++ {
		err := retrier.Run(context.Background(), "tenant-a", core.APITypeSearchAnalytics, true, func(context.Context) error {
			return nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, quota.tracked)

	// trackUsage=false leaves the counter alone.
	err := retrier.Run(context.Background(), "tenant-a", core.APITypeSearchAnalytics, false, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, quota.tracked)
}

func TestRetrierTrackingFailureKeepsSuccess(t *testing.T) {
	quota := &fakeQuotaStore{trackErr: errors.New("quota table locked")}
	retrier := newTestRetrier(quota, nil)

	calls := 0
	err := retrier.Run(context.Background(), "tenant-a", core.APITypeSearchAnalytics, true, func(context.Context) error {
		calls++
		return nil
	})

	// The provider call succeeded; a usage-accounting failure must not turn
	// it into an error or trigger a retry.
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, 0, quota.tracked)
}

func TestRetrierCancelledDuringSleep(t *testing.T) {
	quota := &fakeQuotaStore{counter: &core.QuotaCounter{Allocated: 25000, Used: 25000}}
	retrier := newTestRetrier(quota, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	retrier.Sleep = sleepContext

	err := retrier.Run(ctx, "tenant-a", core.APITypeSearchAnalytics, false, func(context.Context) error {
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
