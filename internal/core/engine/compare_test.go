package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/serpwatch/serpwatch/internal/core"
)

func TestCompareDerivesTotalsAndDeltas(t *testing.T) {
	current := []core.DailyMetrics{
		{Date: "2025-06-01", Clicks: 100, Impressions: 2000, CTR: 0.05, Position: 8.0},
		{Date: "2025-06-02", Clicks: 140, Impressions: 2800, CTR: 0.05, Position: 6.0},
	}
	previous := []core.DailyMetrics{
		{Date: "2025-05-30", Clicks: 80, Impressions: 2000, CTR: 0.04, Position: 10.0},
		{Date: "2025-05-31", Clicks: 120, Impressions: 2000, CTR: 0.06, Position: 12.0},
	}

	result := Compare(current, previous)

	require.Equal(t, int64(240), result.Current.Clicks)
	require.Equal(t, int64(4800), result.Current.Impressions)
	require.InDelta(t, 0.05, result.Current.AvgCTR, 1e-9)
	require.InDelta(t, 7.0, result.Current.AvgPosition, 1e-9)

	require.Equal(t, int64(200), result.Previous.Clicks)
	require.InDelta(t, 20.0, result.ClicksDelta, 1e-9)
	require.InDelta(t, 20.0, result.ImpressionsDelta, 1e-9)
	require.InDelta(t, 0.0, result.CTRDelta, 1e-9)

	// Previous averaged 11.0, current 7.0: moving up four positions.
	require.InDelta(t, 4.0, result.PositionDelta, 1e-9)
}

func TestCompareZeroPreviousYieldsZeroDeltas(t *testing.T) {
	current := []core.DailyMetrics{
		{Date: "2025-06-01", Clicks: 50, Impressions: 1000, CTR: 0.05, Position: 5.0},
	}

	result := Compare(current, nil)

	require.Equal(t, int64(50), result.Current.Clicks)
	require.Zero(t, result.ClicksDelta)
	require.Zero(t, result.ImpressionsDelta)
	require.Zero(t, result.CTRDelta)
	require.InDelta(t, -5.0, result.PositionDelta, 1e-9)
}

func TestCompareEmptySeries(t *testing.T) {
	result := Compare(nil, nil)
	require.Zero(t, result.Current.Clicks)
	require.Zero(t, result.Previous.Clicks)
	require.Zero(t, result.ClicksDelta)
	require.Zero(t, result.PositionDelta)
}

func TestParseDailySeries(t *testing.T) {
	payload := json.RawMessage(`{"rows":[
		{"keys":["2025-06-01"],"clicks":12.4,"impressions":300,"ctr":0.041,"position":9.2},
		{"keys":["2025-06-02"],"clicks":20,"impressions":500,"ctr":0.04,"position":8.1}
	]}`)

	series, err := ParseDailySeries(payload)
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Equal(t, "2025-06-01", series[0].Date)
	require.Equal(t, int64(12), series[0].Clicks)
	require.Equal(t, int64(500), series[1].Impressions)
	require.InDelta(t, 8.1, series[1].Position, 1e-9)

	_, err = ParseDailySeries(json.RawMessage(`not json`))
	require.Error(t, err)

	series, err = ParseDailySeries(json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Empty(t, series)
}

func TestCompareWorseningPositionIsNegative(t *testing.T) {
	current := []core.DailyMetrics{{Position: 15.0}}
	previous := []core.DailyMetrics{{Position: 10.0}}

	result := Compare(current, previous)
	require.InDelta(t, -5.0, result.PositionDelta, 1e-9)
}
