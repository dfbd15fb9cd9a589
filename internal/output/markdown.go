package output

import (
	"fmt"
	"strings"

	"github.com/serpwatch/serpwatch/internal/core"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatStatus renders a tenant status report as Markdown.
func (f *MarkdownFormatter) FormatStatus(report *core.StatusReport) (string, error) {
	if report == nil {
		return "", nil
	}

	mode := "live"
	if report.IsMockMode {
		mode = "mock"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Tenant %s\n\n", escapeMarkdownCell(report.TenantID)))
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Mode | %s |\n", mode))
	if report.SiteIdentifier != "" {
		sb.WriteString(fmt.Sprintf("| Site | %s |\n", escapeMarkdownCell(report.SiteIdentifier)))
	}
	sb.WriteString(fmt.Sprintf("| Connection | %s |\n", connectionLabel(report.Connection)))
	sb.WriteString(fmt.Sprintf("| Cache | %s |\n", freshnessLabel(report.Cache)))
	sb.WriteString(fmt.Sprintf("| Cache age | %s |\n", cacheAge(report.Cache)))
	sb.WriteString(fmt.Sprintf("| Quota | %s |\n", quotaSummary(report.Quota)))
	sb.WriteString(fmt.Sprintf("| Quota resets | %s |\n", resetLabel(report.Quota.NextResetAt)))

	return sb.String(), nil
}

// FormatQuota renders quota counters as Markdown.
func (f *MarkdownFormatter) FormatQuota(counters []core.QuotaCounter) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Quota usage\n\n")
	sb.WriteString("| Tenant | API | Date | Used | Allocated | Reserved |\n")
	sb.WriteString("|--------|-----|------|------|-----------|----------|\n")

	for _, c := range counters {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %d |\n",
			escapeMarkdownCell(c.TenantID),
			escapeMarkdownCell(string(c.APIType)),
			escapeMarkdownCell(c.QuotaDate),
			c.Used,
			c.Allocated,
			c.Reserved,
		))
	}

	if len(counters) == 0 {
		sb.WriteString("\n(no quota counters recorded)\n")
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
