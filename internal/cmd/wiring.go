package cmd

import (
	"time"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/serpwatch/serpwatch/internal/config"
	"github.com/serpwatch/serpwatch/internal/core"
	"github.com/serpwatch/serpwatch/internal/core/engine"
	"github.com/serpwatch/serpwatch/internal/core/provider"
	"github.com/serpwatch/serpwatch/internal/core/store"
	"github.com/serpwatch/serpwatch/internal/core/token"
)

// components bundles the wired access layer. Construction happens once; the
// mock-vs-real provider choice is made here and never re-inspected per call.
type components struct {
	Fetcher    *engine.Fetcher
	Tokens     *token.Manager
	Authorizer *token.Authorizer
	States     *token.StateCodec
	MockMode   bool
}

func buildComponents(cfg *config.Config, db *store.Store, logger *logging.Logger) *components {
	clock := func() time.Time { return time.Now().UTC() }

	manager := &token.Manager{
		Store:        db,
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		TokenURL:     cfg.OAuth.TokenURL,
		SafetyBuffer: cfg.OAuth.SafetyBuffer,
		Clock:        clock,
		Logger:       logger,
	}

	states := &token.StateCodec{
		Secret: []byte(cfg.OAuth.StateSecret),
		MaxAge: cfg.OAuth.StateMaxAge,
		Clock:  clock,
	}

	authorizer := &token.Authorizer{
		AuthURL:     cfg.OAuth.AuthURL,
		ClientID:    cfg.OAuth.ClientID,
		RedirectURL: cfg.OAuth.RedirectURL,
		Scopes:      cfg.OAuth.Scopes,
		States:      states,
	}

	// Without OAuth client credentials the real provider can never authorize
	// a call, so the mock serves as the degraded development path.
	mockMode := cfg.Provider.MockMode || cfg.OAuth.ClientID == ""

	var prov provider.Provider
	if mockMode {
		prov = &provider.MockProvider{Seed: cfg.Provider.MockSeed}
	} else {
		prov = &provider.SearchAPIClient{
			BaseURL: cfg.Provider.BaseURL,
			SiteURL: cfg.Provider.SiteURL,
			Timeout: cfg.Provider.Timeout,
		}
	}

	fetcher := &engine.Fetcher{
		Cache:    db,
		Tokens:   manager,
		Provider: prov,
		Breaker: &engine.Breaker{
			States:           engine.NewMemoryStateStore(),
			FailureThreshold: cfg.Breaker.FailureThreshold,
			ResetTimeout:     cfg.Breaker.ResetTimeout,
			Clock:            clock,
		},
		Retrier: &engine.Retrier{
			Quota:            db,
			DailyAllocation:  cfg.Quota.DailyAllocation,
			ProceedThreshold: cfg.Quota.ProceedThreshold,
			QuotaCooldown:    cfg.Quota.Cooldown,
			RetryCount:       cfg.Retry.Attempts,
			MinDelay:         cfg.Retry.MinDelay,
			MaxDelay:         cfg.Retry.MaxDelay,
			Clock:            clock,
			Logger:           logger,
		},
		MockMode: mockMode,
		SiteURL:  cfg.Provider.SiteURL,
		TTL:      cfg.Cache.DefaultTTL,
		Freshness: core.FreshnessPolicy{
			StaleAfter:    cfg.Cache.StaleAfter,
			ExpiringAfter: cfg.Cache.ExpiringAfter,
		},
		Clock:  clock,
		Logger: logger,
	}

	return &components{
		Fetcher:    fetcher,
		Tokens:     manager,
		Authorizer: authorizer,
		States:     states,
		MockMode:   mockMode,
	}
}
