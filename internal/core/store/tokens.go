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

// GetToken returns the stored OAuth credentials for a tenant, or nil when the
// tenant has never connected.
func (s *Store) GetToken(ctx context.Context, tenantID string) (*core.TokenRecord, error) {
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
		accessToken  string
		refreshToken sql.NullString
		scope        sql.NullString
		expiresAt    int64
		updatedAt    int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, expires_at, scope, updated_at
		FROM oauth_tokens
		WHERE tenant_id = ?
	`, tenantID)

	if err := row.Scan(&accessToken, &refreshToken, &expiresAt, &scope, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch token record: %w", err)
	}

	return &core.TokenRecord{
		TenantID:     tenantID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken.String,
		ExpiresAt:    time.Unix(expiresAt, 0).UTC(),
		Scope:        scope.String,
		UpdatedAt:    time.Unix(updatedAt, 0).UTC(),
	}, nil
}

// PutToken upserts the OAuth credentials for a tenant.
func (s *Store) PutToken(ctx context.Context, record *core.TokenRecord) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if record == nil {
		return errors.New("token record is required")
	}

	tenantID := strings.TrimSpace(record.TenantID)
	if tenantID == "" {
		return errors.New("tenant is required")
	}
	if record.AccessToken == "" {
		return errors.New("access token is required")
	}

	var refreshToken sql.NullString
	if record.RefreshToken != "" {
		refreshToken = sql.NullString{String: record.RefreshToken, Valid: true}
	}

	var scope sql.NullString
	if record.Scope != "" {
		scope = sql.NullString{String: record.Scope, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO oauth_tokens (tenant_id, access_token, refresh_token, expires_at, scope, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			updated_at = excluded.updated_at
	`, tenantID, record.AccessToken, refreshToken, record.ExpiresAt.UTC().Unix(), scope, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("store token record: %w", err)
	}

	return nil
}

// DeleteToken removes the stored credentials for a tenant (disconnect).
func (s *Store) DeleteToken(ctx context.Context, tenantID string) error {
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

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE tenant_id = ?`, tenantID); err != nil {
		return fmt.Errorf("delete token record: %w", err)
	}

	return nil
}
