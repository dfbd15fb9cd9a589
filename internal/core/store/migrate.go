package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS api_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		signature TEXT NOT NULL,
		payload TEXT NOT NULL,
		row_count INTEGER,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		UNIQUE(tenant_id, signature)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_api_cache_expires ON api_cache(expires_at);`,
	`CREATE INDEX IF NOT EXISTS idx_api_cache_tenant ON api_cache(tenant_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS api_quota (
		tenant_id TEXT NOT NULL,
		api_type TEXT NOT NULL,
		quota_date TEXT NOT NULL,
		allocated_quota INTEGER NOT NULL,
		used_quota INTEGER NOT NULL DEFAULT 0,
		reserved_quota INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY(tenant_id, api_type, quota_date)
	);`,
	`CREATE TABLE IF NOT EXISTS oauth_tokens (
		tenant_id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT,
		expires_at INTEGER NOT NULL,
		scope TEXT,
		updated_at INTEGER NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
