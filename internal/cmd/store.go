package cmd

import (
	"context"
	"fmt"

	"github.com/serpwatch/serpwatch/internal/config"
	"github.com/serpwatch/serpwatch/internal/core"
	"github.com/serpwatch/serpwatch/internal/core/store"
)

func openStore(ctx context.Context) (*store.Store, error) {
	cfg := config.Get()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	db.Freshness = core.FreshnessPolicy{
		StaleAfter:    cfg.Cache.StaleAfter,
		ExpiringAfter: cfg.Cache.ExpiringAfter,
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
