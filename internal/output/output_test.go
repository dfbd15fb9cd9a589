package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/serpwatch/serpwatch/internal/core"
)

func sampleReport() *core.StatusReport {
	cached := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	return &core.StatusReport{
		TenantID:       "tenant-a",
		IsMockMode:     true,
		SiteIdentifier: "sc-domain:example.com",
		Connection: core.ConnectionStatus{
			Connected:              true,
			HasProviderCredentials: true,
			CanConnect:             true,
		},
		Cache: &core.FreshnessInfo{
			FromCache: true,
			CachedAt:  cached,
			ExpiresAt: cached.Add(24 * time.Hour),
			AgeHours:  6,
		},
		Quota: core.QuotaStatus{
			Allocated:   25000,
			Used:        120,
			Remaining:   24880,
			CanProceed:  true,
			NextResetAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat(" JSON ")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	_, err = ParseFormat("yaml")
	require.Error(t, err)
}

func TestTableFormatterStatus(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatStatus(sampleReport())
	require.NoError(t, err)
	require.Contains(t, rendered, "tenant-a")
	require.Contains(t, rendered, "mock")
	require.Contains(t, rendered, "connected")
	require.Contains(t, rendered, "fresh")
	require.Contains(t, rendered, "120/25000 used")
}

func TestTableFormatterFreshnessLabels(t *testing.T) {
	report := sampleReport()

	// Past the expiring threshold both flags are set; the label must read
	// "expiring", not "stale".
	report.Cache.IsStale = true
	report.Cache.IsExpiring = true
	report.Cache.AgeHours = 21

	rendered, err := (&TableFormatter{}).FormatStatus(report)
	require.NoError(t, err)
	require.Contains(t, rendered, "expiring")
	require.NotContains(t, rendered, "stale")

	report.Cache.IsExpiring = false
	rendered, err = (&TableFormatter{}).FormatStatus(report)
	require.NoError(t, err)
	require.Contains(t, rendered, "stale")

	report.Cache = nil
	rendered, err = (&TableFormatter{}).FormatStatus(report)
	require.NoError(t, err)
	require.Contains(t, rendered, "empty")
}

func TestTableFormatterQuota(t *testing.T) {
	counters := []core.QuotaCounter{
		{TenantID: "tenant-a", APIType: core.APITypeSearchAnalytics, QuotaDate: "2025-06-01", Allocated: 25000, Used: 12},
		{TenantID: "tenant-b", APIType: core.APITypeSearchAnalytics, QuotaDate: "2025-06-01", Allocated: 25000, Used: 3},
	}

	rendered, err := (&TableFormatter{}).FormatQuota(counters)
	require.NoError(t, err)
	require.Contains(t, rendered, "tenant-a")
	require.Contains(t, rendered, "tenant-b")
	require.Contains(t, rendered, "2025-06-01")
	require.Contains(t, rendered, "15")
}

func TestJSONFormatterStatusRoundTrips(t *testing.T) {
	rendered, err := (&JSONFormatter{Indent: true}).FormatStatus(sampleReport())
	require.NoError(t, err)

	var decoded core.StatusReport
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "tenant-a", decoded.TenantID)
	require.Equal(t, 24880, decoded.Quota.Remaining)
	require.NotNil(t, decoded.Cache)
}

func TestJSONFormatterQuotaEmpty(t *testing.T) {
	rendered, err := (&JSONFormatter{}).FormatQuota(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", rendered)
}

func TestMarkdownFormatterEscapesCells(t *testing.T) {
	report := sampleReport()
	report.SiteIdentifier = "sc-domain:a|b.com"

	rendered, err := (&MarkdownFormatter{}).FormatStatus(report)
	require.NoError(t, err)
	require.Contains(t, rendered, `a\|b.com`)
	require.Contains(t, rendered, "| Quota resets | 2025-06-02T00:00:00Z |")
}

func TestMarkdownFormatterQuotaEmpty(t *testing.T) {
	rendered, err := (&MarkdownFormatter{}).FormatQuota(nil)
	require.NoError(t, err)
	require.Contains(t, rendered, "(no quota counters recorded)")
}
