//go:build cgo

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/serpwatch/serpwatch/internal/core"
)

func TestTrackUsageCreatesAndIncrements(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	day := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	counter, err := db.GetQuota(ctx, "tenant-a", core.APITypeSearchAnalytics, day)
	require.NoError(t, err)
	require.Nil(t, counter)

	require.NoError(t, db.TrackUsage(ctx, "tenant-a", core.APITypeSearchAnalytics, day, 1, 25000))
	require.NoError(t, db.TrackUsage(ctx, "tenant-a", core.APITypeSearchAnalytics, day, 4, 25000))

	counter, err = db.GetQuota(ctx, "tenant-a", core.APITypeSearchAnalytics, day)
	require.NoError(t, err)
	require.NotNil(t, counter)
	require.Equal(t, 25000, counter.Allocated)
	require.Equal(t, 5, counter.Used)
	require.Equal(t, 0, counter.Reserved)
}

func TestTrackUsageDateRollover(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	day1 := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC)

	require.NoError(t, db.TrackUsage(ctx, "tenant-a", core.APITypeSearchAnalytics, day1, 3, 25000))
	require.NoError(t, db.TrackUsage(ctx, "tenant-a", core.APITypeSearchAnalytics, day2, 7, 25000))

	counter, err := db.GetQuota(ctx, "tenant-a", core.APITypeSearchAnalytics, day2)
	require.NoError(t, err)
	require.Equal(t, 7, counter.Used)

	counters, err := db.ListQuota(ctx, QuotaQuery{TenantID: "tenant-a"})
	require.NoError(t, err)
	require.Len(t, counters, 2)
	require.Equal(t, "2026-08-30", counters[0].QuotaDate)
}

func TestTrackUsageConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	day := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = db.TrackUsage(ctx, "tenant-a", core.APITypeSearchAnalytics, day, 1, 25000)
		}()
	}
	wg.Wait()

	counter, err := db.GetQuota(ctx, "tenant-a", core.APITypeSearchAnalytics, day)
	require.NoError(t, err)
	require.Equal(t, workers, counter.Used)
}

func TestResetQuota(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	day := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.TrackUsage(ctx, "tenant-a", core.APITypeSearchAnalytics, day, 9, 25000))
	require.NoError(t, db.ResetQuota(ctx, "tenant-a", core.APITypeSearchAnalytics, day))

	counter, err := db.GetQuota(ctx, "tenant-a", core.APITypeSearchAnalytics, day)
	require.NoError(t, err)
	require.Equal(t, 0, counter.Used)
	require.Equal(t, 25000, counter.Allocated)
}
