package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

const mockSource = "mock"

// MockProvider is a drop-in substitute for the real client, used when no
// provider credentials exist or mock mode is enabled. Rows are generated per
// request but deterministic for a given seed, so dashboards render stable
// data across reloads in development.
type MockProvider struct {
	Seed int64
}

// Name identifies the provider implementation.
func (m *MockProvider) Name() string {
	return mockSource
}

// Call synthesizes a search-analytics response for the requested date range.
// The access token is ignored; the mock never talks to the network.
func (m *MockProvider) Call(ctx context.Context, _ string, endpoint string, params map[string]any) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	faker := gofakeit.New(m.seedFor(endpoint, params))

	start, end := dateRange(params)
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	if days > 90 {
		days = 90
	}

	type mockRow struct {
		Keys        []string `json:"keys"`
		Clicks      float64  `json:"clicks"`
		Impressions float64  `json:"impressions"`
		CTR         float64  `json:"ctr"`
		Position    float64  `json:"position"`
	}

	rows := make([]mockRow, 0, days)
	for i := 0; i < days; i++ {
		impressions := float64(faker.Number(200, 5000))
		clicks := impressions * faker.Float64Range(0.01, 0.12)
		rows = append(rows, mockRow{
			Keys:        []string{start.AddDate(0, 0, i).Format("2006-01-02")},
			Clicks:      clicks,
			Impressions: impressions,
			CTR:         clicks / impressions,
			Position:    faker.Float64Range(1.5, 45),
		})
	}

	payload, err := json.Marshal(map[string]any{"rows": rows})
	if err != nil {
		return nil, err
	}

	return &Response{Data: payload, RowCount: len(rows)}, nil
}

// seedFor keeps output stable per logical request while still varying across
// endpoints and date ranges.
func (m *MockProvider) seedFor(endpoint string, params map[string]any) int64 {
	seed := m.Seed
	if seed == 0 {
		seed = 1
	}

	var mix int64
	for _, c := range fmt.Sprintf("%s:%v:%v", endpoint, params["startDate"], params["endDate"]) {
		mix = mix*31 + int64(c)
	}
	return seed + mix
}

func dateRange(params map[string]any) (time.Time, time.Time) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -27)

	if raw, ok := params["startDate"].(string); ok {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			start = parsed
		}
	}
	if raw, ok := params["endDate"].(string); ok {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			end = parsed
		}
	}
	if end.Before(start) {
		end = start
	}
	return start, end
}
