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

const quotaDateLayout = "2006-01-02"

// GetQuota returns today's quota counter for a tenant, or nil when the row
// has not been created yet. Read-only; never mutates.
func (s *Store) GetQuota(ctx context.Context, tenantID string, apiType core.APIType, day time.Time) (*core.QuotaCounter, error) {
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

	quotaDate := day.UTC().Format(quotaDateLayout)

	var allocated, used, reserved int
	row := s.DB.QueryRowContext(ctx, `
		SELECT allocated_quota, used_quota, reserved_quota
		FROM api_quota
		WHERE tenant_id = ? AND api_type = ? AND quota_date = ?
	`, tenantID, string(apiType), quotaDate)

	if err := row.Scan(&allocated, &used, &reserved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch quota: %w", err)
	}

	return &core.QuotaCounter{
		TenantID:  tenantID,
		APIType:   apiType,
		QuotaDate: quotaDate,
		Allocated: allocated,
		Used:      used,
		Reserved:  reserved,
	}, nil
}

// TrackUsage adds count to today's used quota, creating the row with the
// default allocation on first use. The increment happens inside the upsert so
// concurrent callers for the same tenant never lose updates.
func (s *Store) TrackUsage(ctx context.Context, tenantID string, apiType core.APIType, day time.Time, count, defaultAllocation int) error {
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
	if count <= 0 {
		return nil
	}

	quotaDate := day.UTC().Format(quotaDateLayout)

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO api_quota (tenant_id, api_type, quota_date, allocated_quota, used_quota, reserved_quota)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(tenant_id, api_type, quota_date) DO UPDATE SET
			used_quota = used_quota + excluded.used_quota
	`, tenantID, string(apiType), quotaDate, defaultAllocation, count)
	if err != nil {
		return fmt.Errorf("track quota usage: %w", err)
	}

	return nil
}

// QuotaQuery filters ListQuota results for the admin CLI.
type QuotaQuery struct {
	TenantID string
	Day      *time.Time
}

// ListQuota returns quota counters, newest day first.
func (s *Store) ListQuota(ctx context.Context, query QuotaQuery) ([]core.QuotaCounter, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if tenant := strings.TrimSpace(query.TenantID); tenant != "" {
		clauses = append(clauses, "tenant_id = ?")
		args = append(args, tenant)
	}
	if query.Day != nil {
		clauses = append(clauses, "quota_date = ?")
		args = append(args, query.Day.UTC().Format(quotaDateLayout))
	}

	stmt := `SELECT tenant_id, api_type, quota_date, allocated_quota, used_quota, reserved_quota FROM api_quota`
	if len(clauses) > 0 {
		stmt += " WHERE " + strings.Join(clauses, " AND ")
	}
	stmt += " ORDER BY quota_date DESC, tenant_id ASC"

	rows, err := s.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list quota: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var counters []core.QuotaCounter
	for rows.Next() {
		var (
			counter core.QuotaCounter
			apiType string
		)
		if err := rows.Scan(&counter.TenantID, &apiType, &counter.QuotaDate, &counter.Allocated, &counter.Used, &counter.Reserved); err != nil {
			return nil, fmt.Errorf("scan quota row: %w", err)
		}
		counter.APIType = core.APIType(apiType)
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quota: %w", err)
	}

	return counters, nil
}

// ResetQuota zeroes today's used quota for a tenant. Admin tooling only.
func (s *Store) ResetQuota(ctx context.Context, tenantID string, apiType core.APIType, day time.Time) error {
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

	_, err := s.DB.ExecContext(ctx, `
		UPDATE api_quota SET used_quota = 0
		WHERE tenant_id = ? AND api_type = ? AND quota_date = ?
	`, tenantID, string(apiType), day.UTC().Format(quotaDateLayout))
	if err != nil {
		return fmt.Errorf("reset quota: %w", err)
	}

	return nil
}
