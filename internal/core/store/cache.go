package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serpwatch/serpwatch/internal/core"
)

// GetCacheEntry returns a cached provider response if it has not expired.
// Expired rows are left in place for the sweep; reads simply filter them out.
func (s *Store) GetCacheEntry(ctx context.Context, tenantID, sig string) (*core.CacheEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tenantID = strings.TrimSpace(tenantID)
	sig = strings.TrimSpace(sig)
	if tenantID == "" || sig == "" {
		return nil, errors.New("tenant and signature are required")
	}

	var (
		payload   string
		rowCount  sql.NullInt64
		createdAt int64
		expiresAt int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT payload, row_count, created_at, expires_at
		FROM api_cache
		WHERE tenant_id = ? AND signature = ? AND expires_at > ?
	`, tenantID, sig, time.Now().UTC().Unix())

	if err := row.Scan(&payload, &rowCount, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cache entry: %w", err)
	}

	return &core.CacheEntry{
		TenantID:  tenantID,
		Signature: sig,
		Payload:   []byte(payload),
		RowCount:  int(rowCount.Int64),
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
	}, nil
}

// PutCacheEntry upserts a provider response for (tenant, signature) and
// returns the freshness of the stored entry. Concurrent writers for the same
// key race benignly; the last write wins with a consistent timestamp pair.
func (s *Store) PutCacheEntry(ctx context.Context, tenantID, sig string, payload []byte, rowCount int, ttl time.Duration) (*core.FreshnessInfo, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tenantID = strings.TrimSpace(tenantID)
	sig = strings.TrimSpace(sig)
	if tenantID == "" || sig == "" {
		return nil, errors.New("tenant and signature are required")
	}
	if ttl <= 0 {
		ttl = core.DefaultTTL
	}

	now := time.Now().UTC()
	expires := now.Add(ttl)

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO api_cache (tenant_id, signature, payload, row_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, signature) DO UPDATE SET
			payload = excluded.payload,
			row_count = excluded.row_count,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, tenantID, sig, string(payload), rowCount, now.Unix(), expires.Unix())
	if err != nil {
		return nil, fmt.Errorf("store cache entry: %w", err)
	}

	freshness := s.Freshness.Classify(now, expires, now)
	freshness.FromCache = false
	return &freshness, nil
}

// InvalidateCache deletes one cached entry, or every entry for the tenant
// when sig is empty. Used by the force-refresh path.
func (s *Store) InvalidateCache(ctx context.Context, tenantID, sig string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return errors.New("tenant is required")
	}

	var err error
	if sig = strings.TrimSpace(sig); sig != "" {
		_, err = s.DB.ExecContext(ctx, `DELETE FROM api_cache WHERE tenant_id = ? AND signature = ?`, tenantID, sig)
	} else {
		_, err = s.DB.ExecContext(ctx, `DELETE FROM api_cache WHERE tenant_id = ?`, tenantID)
	}
	if err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}

	return nil
}

// TenantFreshness reports the freshness of the most recent valid entry for a
// tenant, independent of any one endpoint. Returns nil when nothing is cached.
func (s *Store) TenantFreshness(ctx context.Context, tenantID string) (*core.FreshnessInfo, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, errors.New("tenant is required")
	}

	var (
		createdAt int64
		expiresAt int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT created_at, expires_at
		FROM api_cache
		WHERE tenant_id = ? AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, time.Now().UTC().Unix())

	if err := row.Scan(&createdAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch tenant freshness: %w", err)
	}

	freshness := s.Freshness.Classify(time.Unix(createdAt, 0).UTC(), time.Unix(expiresAt, 0).UTC(), time.Now().UTC())
	return &freshness, nil
}

// SweepExpiredCache deletes expired rows and reports how many were removed.
func (s *Store) SweepExpiredCache(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM api_cache WHERE expires_at <= ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("sweep expired cache: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}

// CountCacheEntries returns total and valid row counts for a tenant, used by
// the cache admin CLI.
func (s *Store) CountCacheEntries(ctx context.Context, tenantID string) (total int64, valid int64, err error) {
	if s == nil || s.DB == nil {
		return 0, 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0)
		FROM api_cache
		WHERE tenant_id = ?
	`, time.Now().UTC().Unix(), strings.TrimSpace(tenantID))

	if err := row.Scan(&total, &valid); err != nil {
		return 0, 0, fmt.Errorf("count cache entries: %w", err)
	}

	return total, valid, nil
}
