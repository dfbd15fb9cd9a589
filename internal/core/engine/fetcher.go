package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/serpwatch/serpwatch/internal/core"
	"github.com/serpwatch/serpwatch/internal/core/provider"
	"github.com/serpwatch/serpwatch/internal/core/signature"
	"github.com/serpwatch/serpwatch/internal/metrics"
)

// CacheStore is the slice of the persistent store the fetcher needs for
// cache-first retrieval.
type CacheStore interface {
	GetCacheEntry(ctx context.Context, tenantID, sig string) (*core.CacheEntry, error)
	PutCacheEntry(ctx context.Context, tenantID, sig string, payload []byte, rowCount int, ttl time.Duration) (*core.FreshnessInfo, error)
	InvalidateCache(ctx context.Context, tenantID, sig string) error
	TenantFreshness(ctx context.Context, tenantID string) (*core.FreshnessInfo, error)
}

// TokenSource supplies per-tenant provider credentials. GetValidToken returns
// an empty token when no usable credential exists; that is not an error here,
// the fetcher decides how to degrade.
type TokenSource interface {
	GetValidToken(ctx context.Context, tenantID string) (string, error)
	ConnectionStatus(ctx context.Context, tenantID string) (*core.ConnectionStatus, error)
}

// AuthUnavailableError means no valid provider token could be obtained for a
// tenant. Callers should degrade to the mock path rather than hard-fail.
type AuthUnavailableError struct {
	TenantID string
}

func (e *AuthUnavailableError) Error() string {
	return fmt.Sprintf("no valid provider credentials for tenant %s", e.TenantID)
}

// Fetcher composes the cache store, token source, breaker and retrier into
// cache-first protected fetch operations against one provider. The provider
// is selected once at construction (real or mock), never re-checked per call.
type Fetcher struct {
	Cache    CacheStore
	Tokens   TokenSource
	Provider provider.Provider
	Breaker  *Breaker
	Retrier  *Retrier

	MockMode  bool
	SiteURL   string
	TTL       time.Duration
	Freshness core.FreshnessPolicy
	Clock     func() time.Time
	Logger    *logging.Logger
}

// Fetch returns the payload for (tenant, endpoint, params), serving from
// cache unless forceRefresh is set. Cache failures never fail the fetch: a
// read error degrades to a miss and a write error skips persistence, both
// logged.
func (f *Fetcher) Fetch(ctx context.Context, tenantID, endpoint string, params map[string]any, ttl time.Duration, forceRefresh bool) (*core.FetchResult, error) {
	sig, err := signature.Compute(endpoint, params)
	if err != nil {
		return nil, err
	}

	now := f.now()

	if !forceRefresh {
		entry, err := f.Cache.GetCacheEntry(ctx, tenantID, sig)
		if err != nil {
			f.logWarn("cache read failed, treating as miss",
				zap.String("tenant_id", tenantID),
				zap.String("endpoint", endpoint),
				zap.Error(err))
		}
		metrics.RecordCacheLookup(endpoint, entry != nil)
		if entry != nil {
			return &core.FetchResult{
				Data:      entry.Payload,
				Freshness: f.Freshness.Classify(entry.CreatedAt, entry.ExpiresAt, now),
			}, nil
		}
	}

	start := f.now()

	var resp *provider.Response
	err = f.Breaker.Protect(ctx, tenantID, func(ctx context.Context) error {
		return f.Retrier.Run(ctx, tenantID, core.APITypeSearchAnalytics, true, func(ctx context.Context) error {
			token, tokenErr := f.token(ctx, tenantID)
			if tokenErr != nil {
				return tokenErr
			}

			called, callErr := f.Provider.Call(ctx, token, endpoint, params)
			if callErr != nil {
				return callErr
			}
			resp = called
			return nil
		})
	})

	metrics.RecordFetch(endpoint, err == nil, f.now().Sub(start))
	if err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = f.defaultTTL()
	}

	freshness, putErr := f.Cache.PutCacheEntry(ctx, tenantID, sig, resp.Data, resp.RowCount, ttl)
	if putErr != nil || freshness == nil {
		f.logWarn("cache write failed, returning uncached result",
			zap.String("tenant_id", tenantID),
			zap.String("endpoint", endpoint),
			zap.Error(putErr))
		now := f.now()
		info := f.Freshness.Classify(now, now.Add(ttl), now)
		info.FromCache = false
		freshness = &info
	}

	return &core.FetchResult{Data: resp.Data, Freshness: *freshness}, nil
}

// Refresh force-invalidates the cached entry for (endpoint, params) and
// performs a forced fetch, returning the updated result.
func (f *Fetcher) Refresh(ctx context.Context, tenantID, endpoint string, params map[string]any, ttl time.Duration) (*core.FetchResult, error) {
	sig, err := signature.Compute(endpoint, params)
	if err != nil {
		return nil, err
	}

	if err := f.Cache.InvalidateCache(ctx, tenantID, sig); err != nil {
		f.logWarn("cache invalidation failed before forced fetch",
			zap.String("tenant_id", tenantID),
			zap.String("endpoint", endpoint),
			zap.Error(err))
	}

	return f.Fetch(ctx, tenantID, endpoint, params, ttl, true)
}

// Status assembles the tenant status surface: connection, tenant-level cache
// freshness, and today's quota. Cache and connection lookups degrade to
// empty sections on store failure.
func (f *Fetcher) Status(ctx context.Context, tenantID string) (*core.StatusReport, error) {
	report := &core.StatusReport{
		TenantID:       tenantID,
		IsMockMode:     f.MockMode,
		SiteIdentifier: f.SiteURL,
	}

	if f.Tokens != nil {
		conn, err := f.Tokens.ConnectionStatus(ctx, tenantID)
		if err != nil {
			f.logWarn("connection status lookup failed",
				zap.String("tenant_id", tenantID), zap.Error(err))
		} else if conn != nil {
			report.Connection = *conn
		}
	}

	freshness, err := f.Cache.TenantFreshness(ctx, tenantID)
	if err != nil {
		f.logWarn("tenant freshness lookup failed",
			zap.String("tenant_id", tenantID), zap.Error(err))
	} else {
		report.Cache = freshness
	}

	quota, err := f.Retrier.Status(ctx, tenantID, core.APITypeSearchAnalytics)
	if err != nil {
		return nil, err
	}
	report.Quota = *quota

	return report, nil
}

func (f *Fetcher) token(ctx context.Context, tenantID string) (string, error) {
	if f.MockMode || f.Tokens == nil {
		return "", nil
	}

	token, err := f.Tokens.GetValidToken(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", &AuthUnavailableError{TenantID: tenantID}
	}
	return token, nil
}

func (f *Fetcher) defaultTTL() time.Duration {
	if f.TTL > 0 {
		return f.TTL
	}
	return core.DefaultTTL
}

func (f *Fetcher) logWarn(msg string, fields ...zap.Field) {
	if f == nil || f.Logger == nil {
		return
	}
	f.Logger.Warn(msg, fields...)
}

func (f *Fetcher) now() time.Time {
	if f != nil && f.Clock != nil {
		return f.Clock()
	}
	return time.Now().UTC()
}
