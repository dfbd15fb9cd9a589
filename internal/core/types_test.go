package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFreshnessBoundaries(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	expiresAt := createdAt.Add(24 * time.Hour)

	cases := []struct {
		name       string
		age        time.Duration
		isStale    bool
		isExpiring bool
	}{
		{name: "new entry", age: 0, isStale: false, isExpiring: false},
		{name: "just under stale", age: 12*time.Hour - time.Second, isStale: false, isExpiring: false},
		{name: "exactly stale threshold", age: 12 * time.Hour, isStale: false, isExpiring: false},
		{name: "just over stale", age: 12*time.Hour + time.Second, isStale: true, isExpiring: false},
		{name: "exactly expiring threshold", age: 20 * time.Hour, isStale: true, isExpiring: false},
		{name: "just over expiring", age: 20*time.Hour + time.Second, isStale: true, isExpiring: true},
		{name: "near expiry", age: 24*time.Hour - time.Second, isStale: true, isExpiring: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := Freshness(createdAt, expiresAt, createdAt.Add(tc.age))
			require.True(t, info.FromCache)
			require.Equal(t, tc.isStale, info.IsStale, "IsStale at age %s", tc.age)
			require.Equal(t, tc.isExpiring, info.IsExpiring, "IsExpiring at age %s", tc.age)
			require.InDelta(t, tc.age.Hours(), info.AgeHours, 1e-9)
		})
	}
}

func TestFreshnessPolicyOverridesThresholds(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	expiresAt := createdAt.Add(6 * time.Hour)
	policy := FreshnessPolicy{StaleAfter: time.Hour, ExpiringAfter: 2 * time.Hour}

	info := policy.Classify(createdAt, expiresAt, createdAt.Add(90*time.Minute))
	require.True(t, info.IsStale)
	require.False(t, info.IsExpiring)

	info = policy.Classify(createdAt, expiresAt, createdAt.Add(3*time.Hour))
	require.True(t, info.IsStale)
	require.True(t, info.IsExpiring)

	// Zero policy falls back to the defaults.
	info = FreshnessPolicy{}.Classify(createdAt, expiresAt, createdAt.Add(3*time.Hour))
	require.False(t, info.IsStale)
	require.False(t, info.IsExpiring)
}

func TestNextUTCMidnight(t *testing.T) {
	noon := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), NextUTCMidnight(noon))

	// A non-UTC clock still resets on the UTC boundary.
	offset := time.FixedZone("UTC+5", 5*3600)
	late := time.Date(2025, 6, 2, 3, 0, 0, 0, offset) // 2025-06-01T22:00Z
	require.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), NextUTCMidnight(late))

	midnight := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), NextUTCMidnight(midnight))
}
