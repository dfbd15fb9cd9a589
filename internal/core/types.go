package core

import (
	"encoding/json"
	"time"
)

// APIType identifies the upstream API a quota row accounts for.
type APIType string

const (
	APITypeSearchAnalytics APIType = "search_analytics"
	APITypeURLInspection   APIType = "url_inspection"
)

// Freshness classification thresholds and cache defaults.
const (
	StaleAfter    = 12 * time.Hour
	ExpiringAfter = 20 * time.Hour
	DefaultTTL    = 24 * time.Hour
)

// CacheEntry is a stored provider response keyed by (tenant, signature).
type CacheEntry struct {
	TenantID  string          `json:"tenant_id"`
	Signature string          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
	RowCount  int             `json:"row_count,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// FreshnessInfo classifies the age of a cached entry.
type FreshnessInfo struct {
	FromCache  bool      `json:"from_cache"`
	CachedAt   time.Time `json:"cached_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	AgeHours   float64   `json:"age_hours"`
	IsStale    bool      `json:"is_stale"`
	IsExpiring bool      `json:"is_expiring"`
}

// FreshnessPolicy carries configurable staleness thresholds. The zero value
// classifies with the package defaults.
type FreshnessPolicy struct {
	StaleAfter    time.Duration
	ExpiringAfter time.Duration
}

func (p FreshnessPolicy) staleAfter() time.Duration {
	if p.StaleAfter > 0 {
		return p.StaleAfter
	}
	return StaleAfter
}

func (p FreshnessPolicy) expiringAfter() time.Duration {
	if p.ExpiringAfter > 0 {
		return p.ExpiringAfter
	}
	return ExpiringAfter
}

// Classify derives FreshnessInfo from entry timestamps and now.
// Equality with a threshold is "not yet stale/expiring": classification
// uses strict greater-than.
func (p FreshnessPolicy) Classify(createdAt, expiresAt, now time.Time) FreshnessInfo {
	age := now.Sub(createdAt)
	return FreshnessInfo{
		FromCache:  true,
		CachedAt:   createdAt.UTC(),
		ExpiresAt:  expiresAt.UTC(),
		AgeHours:   age.Hours(),
		IsStale:    age > p.staleAfter(),
		IsExpiring: age > p.expiringAfter(),
	}
}

// Freshness classifies under the default thresholds.
func Freshness(createdAt, expiresAt, now time.Time) FreshnessInfo {
	return FreshnessPolicy{}.Classify(createdAt, expiresAt, now)
}

// QuotaCounter is a per-(tenant, api, day) call budget row.
type QuotaCounter struct {
	TenantID  string  `json:"tenant_id"`
	APIType   APIType `json:"api_type"`
	QuotaDate string  `json:"quota_date"`
	Allocated int     `json:"allocated"`
	Used      int     `json:"used"`
	Reserved  int     `json:"reserved"`
}

// QuotaStatus reports the remaining daily budget for a tenant.
type QuotaStatus struct {
	Allocated   int       `json:"allocated"`
	Used        int       `json:"used"`
	Reserved    int       `json:"reserved"`
	Remaining   int       `json:"remaining"`
	CanProceed  bool      `json:"can_proceed"`
	NextResetAt time.Time `json:"next_reset_at"`
}

// NextUTCMidnight returns the next daily quota reset boundary after now.
func NextUTCMidnight(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// TokenRecord holds per-tenant OAuth credentials.
type TokenRecord struct {
	TenantID     string    `json:"tenant_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConnectionStatus reports whether a tenant has usable provider credentials.
type ConnectionStatus struct {
	Connected              bool       `json:"connected"`
	HasProviderCredentials bool       `json:"has_provider_credentials"`
	ExpiresAt              *time.Time `json:"expires_at,omitempty"`
	CanConnect             bool       `json:"can_connect"`
}

// DailyMetrics is one day of search performance for a tenant property.
type DailyMetrics struct {
	Date        string  `json:"date"`
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// PeriodTotals aggregates a daily series.
type PeriodTotals struct {
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	AvgCTR      float64 `json:"avg_ctr"`
	AvgPosition float64 `json:"avg_position"`
}

// ComparisonMetrics is the current-vs-previous period derivation.
// PositionDelta is previous minus current: positive means improvement,
// since a lower numeric position ranks higher.
type ComparisonMetrics struct {
	Current          PeriodTotals `json:"current"`
	Previous         PeriodTotals `json:"previous"`
	ClicksDelta      float64      `json:"clicks_delta_pct"`
	ImpressionsDelta float64      `json:"impressions_delta_pct"`
	CTRDelta         float64      `json:"ctr_delta_pct"`
	PositionDelta    float64      `json:"position_delta"`
}

// FetchResult pairs a fetched payload with its freshness metadata.
type FetchResult struct {
	Data      json.RawMessage `json:"data"`
	Freshness FreshnessInfo   `json:"freshness"`
}

// StatusReport is the tenant status surface exposed to the UI layer.
type StatusReport struct {
	TenantID       string           `json:"tenant_id"`
	IsMockMode     bool             `json:"is_mock_mode"`
	SiteIdentifier string           `json:"site_identifier,omitempty"`
	Connection     ConnectionStatus `json:"connection"`
	Cache          *FreshnessInfo   `json:"cache,omitempty"`
	Quota          QuotaStatus      `json:"quota"`
}
