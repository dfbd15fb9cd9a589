package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/serpwatch/serpwatch/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatStatus renders a tenant status report as a table.
func (f *TableFormatter) FormatStatus(report *core.StatusReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})

	mode := "live"
	if report.IsMockMode {
		mode = "mock"
	}

	t.AppendRow(table.Row{"Tenant", report.TenantID})
	t.AppendRow(table.Row{"Mode", mode})
	if report.SiteIdentifier != "" {
		t.AppendRow(table.Row{"Site", report.SiteIdentifier})
	}
	t.AppendRow(table.Row{"Connection", connectionLabel(report.Connection)})
	t.AppendRow(table.Row{"Cache", freshnessLabel(report.Cache)})
	t.AppendRow(table.Row{"Cache age", cacheAge(report.Cache)})
	t.AppendRow(table.Row{"Quota", quotaSummary(report.Quota)})
	t.AppendRow(table.Row{"Quota resets", resetLabel(report.Quota.NextResetAt)})

	return t.Render(), nil
}

// FormatQuota renders quota counters as a table.
func (f *TableFormatter) FormatQuota(counters []core.QuotaCounter) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Tenant", "API", "Date", "Used", "Allocated", "Reserved"})

	var used, allocated int
	for _, c := range counters {
		t.AppendRow(table.Row{
			c.TenantID,
			string(c.APIType),
			c.QuotaDate,
			c.Used,
			c.Allocated,
			c.Reserved,
		})
		used += c.Used
		allocated += c.Allocated
	}

	if len(counters) > 0 {
		t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d", used), fmt.Sprintf("%d", allocated), ""})
	}

	return t.Render(), nil
}
