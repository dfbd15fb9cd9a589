package engine

import (
	"encoding/json"
	"fmt"

	"github.com/serpwatch/serpwatch/internal/core"
)

// ParseDailySeries decodes a search-analytics payload into a daily series.
// Rows are keyed by date in keys[0], matching both the real provider and the
// mock.
func ParseDailySeries(payload json.RawMessage) ([]core.DailyMetrics, error) {
	var body struct {
		Rows []struct {
			Keys        []string `json:"keys"`
			Clicks      float64  `json:"clicks"`
			Impressions float64  `json:"impressions"`
			CTR         float64  `json:"ctr"`
			Position    float64  `json:"position"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decoding daily series: %w", err)
	}

	series := make([]core.DailyMetrics, 0, len(body.Rows))
	for _, row := range body.Rows {
		day := core.DailyMetrics{
			Clicks:      int64(row.Clicks),
			Impressions: int64(row.Impressions),
			CTR:         row.CTR,
			Position:    row.Position,
		}
		if len(row.Keys) > 0 {
			day.Date = row.Keys[0]
		}
		series = append(series, day)
	}
	return series, nil
}

// Compare derives period-over-period metrics from a current daily series and
// the equal-length preceding one. Pure computation, no network or store
// access.
func Compare(current, previous []core.DailyMetrics) core.ComparisonMetrics {
	curr := totals(current)
	prev := totals(previous)

	return core.ComparisonMetrics{
		Current:          curr,
		Previous:         prev,
		ClicksDelta:      percentDelta(float64(curr.Clicks), float64(prev.Clicks)),
		ImpressionsDelta: percentDelta(float64(curr.Impressions), float64(prev.Impressions)),
		CTRDelta:         percentDelta(curr.AvgCTR, prev.AvgCTR),
		// Position improves downward, so the delta is previous minus current.
		PositionDelta: prev.AvgPosition - curr.AvgPosition,
	}
}

func totals(series []core.DailyMetrics) core.PeriodTotals {
	var out core.PeriodTotals
	if len(series) == 0 {
		return out
	}

	var ctrSum, posSum float64
	for _, day := range series {
		out.Clicks += day.Clicks
		out.Impressions += day.Impressions
		ctrSum += day.CTR
		posSum += day.Position
	}

	out.AvgCTR = ctrSum / float64(len(series))
	out.AvgPosition = posSum / float64(len(series))
	return out
}

func percentDelta(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}
