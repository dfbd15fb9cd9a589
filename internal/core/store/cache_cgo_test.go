//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/serpwatch/serpwatch/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	db, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestCacheEntryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	payload := []byte(`{"rows":[{"clicks":42}]}`)
	freshness, err := db.PutCacheEntry(ctx, "tenant-a", "sig-1", payload, 1, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, freshness)
	require.False(t, freshness.FromCache)
	require.False(t, freshness.IsStale)

	entry, err := db.GetCacheEntry(ctx, "tenant-a", "sig-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.JSONEq(t, string(payload), string(entry.Payload))
	require.Equal(t, 1, entry.RowCount)

	missing, err := db.GetCacheEntry(ctx, "tenant-a", "sig-other")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCacheEntryUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	_, err := db.PutCacheEntry(ctx, "tenant-a", "sig-1", []byte(`{"v":1}`), 0, time.Hour)
	require.NoError(t, err)
	_, err = db.PutCacheEntry(ctx, "tenant-a", "sig-1", []byte(`{"v":2}`), 0, time.Hour)
	require.NoError(t, err)

	entry, err := db.GetCacheEntry(ctx, "tenant-a", "sig-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"v":2}`, string(entry.Payload))

	total, valid, err := db.CountCacheEntries(ctx, "tenant-a")
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.EqualValues(t, 1, valid)
}

func TestCacheExpiredEntryNotReturned(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	// Insert a row whose expiry is already in the past. PutCacheEntry always
	// stamps now, so write directly.
	past := time.Now().UTC().Add(-2 * time.Hour)
	_, err := db.DB.ExecContext(ctx, `
		INSERT INTO api_cache (tenant_id, signature, payload, row_count, created_at, expires_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, "tenant-a", "sig-old", `{}`, past.Unix(), past.Add(time.Hour).Unix())
	require.NoError(t, err)

	entry, err := db.GetCacheEntry(ctx, "tenant-a", "sig-old")
	require.NoError(t, err)
	require.Nil(t, entry)

	// The row stays until the sweep removes it.
	total, valid, err := db.CountCacheEntries(ctx, "tenant-a")
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.EqualValues(t, 0, valid)

	removed, err := db.SweepExpiredCache(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	total, _, err = db.CountCacheEntries(ctx, "tenant-a")
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
}

func TestInvalidateCache(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	_, err := db.PutCacheEntry(ctx, "tenant-a", "sig-1", []byte(`{}`), 0, time.Hour)
	require.NoError(t, err)
	_, err = db.PutCacheEntry(ctx, "tenant-a", "sig-2", []byte(`{}`), 0, time.Hour)
	require.NoError(t, err)
	_, err = db.PutCacheEntry(ctx, "tenant-b", "sig-1", []byte(`{}`), 0, time.Hour)
	require.NoError(t, err)

	require.NoError(t, db.InvalidateCache(ctx, "tenant-a", "sig-1"))
	entry, err := db.GetCacheEntry(ctx, "tenant-a", "sig-1")
	require.NoError(t, err)
	require.Nil(t, entry)

	require.NoError(t, db.InvalidateCache(ctx, "tenant-a", ""))
	total, _, err := db.CountCacheEntries(ctx, "tenant-a")
	require.NoError(t, err)
	require.EqualValues(t, 0, total)

	// Other tenants are untouched.
	entry, err = db.GetCacheEntry(ctx, "tenant-b", "sig-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
}

func TestTenantFreshness(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	freshness, err := db.TenantFreshness(ctx, "tenant-a")
	require.NoError(t, err)
	require.Nil(t, freshness)

	_, err = db.PutCacheEntry(ctx, "tenant-a", "sig-1", []byte(`{}`), 0, time.Hour)
	require.NoError(t, err)

	freshness, err = db.TenantFreshness(ctx, "tenant-a")
	require.NoError(t, err)
	require.NotNil(t, freshness)
	require.True(t, freshness.FromCache)
	require.False(t, freshness.IsStale)
}
