package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/serpwatch/serpwatch/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders tenant status reports and quota counters.
type Formatter interface {
	FormatStatus(report *core.StatusReport) (string, error)
	FormatQuota(counters []core.QuotaCounter) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func connectionLabel(conn core.ConnectionStatus) string {
	switch {
	case conn.Connected:
		return "connected"
	case conn.CanConnect:
		return "not connected"
	default:
		return "credentials missing"
	}
}

// freshnessLabel collapses the classification flags to one word. Expiring
// implies stale, so it is checked first.
func freshnessLabel(info *core.FreshnessInfo) string {
	switch {
	case info == nil:
		return "empty"
	case info.IsExpiring:
		return "expiring"
	case info.IsStale:
		return "stale"
	default:
		return "fresh"
	}
}

func cacheAge(info *core.FreshnessInfo) string {
	if info == nil {
		return "-"
	}
	return fmt.Sprintf("%.1fh", info.AgeHours)
}

func quotaSummary(quota core.QuotaStatus) string {
	return fmt.Sprintf("%d/%d used, %d remaining", quota.Used, quota.Allocated, quota.Remaining)
}

func resetLabel(at time.Time) string {
	if at.IsZero() {
		return "-"
	}
	return at.UTC().Format(time.RFC3339)
}
