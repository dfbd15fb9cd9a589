package signature

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeKeyOrderIndependent(t *testing.T) {
	a := map[string]any{
		"startDate":  "2026-08-01",
		"endDate":    "2026-08-28",
		"dimensions": []string{"date"},
		"filters": map[string]any{
			"country": "us",
			"device":  "mobile",
		},
	}
	b := map[string]any{
		"filters": map[string]any{
			"device":  "mobile",
			"country": "us",
		},
		"dimensions": []string{"date"},
		"endDate":    "2026-08-28",
		"startDate":  "2026-08-01",
	}

	sigA, err := Compute("overview", a)
	require.NoError(t, err)
	sigB, err := Compute("overview", b)
	require.NoError(t, err)
	require.Equal(t, sigA, sigB)
}

func TestComputeDistinguishesEndpointAndParams(t *testing.T) {
	params := map[string]any{"startDate": "2026-08-01"}

	base, err := Compute("overview", params)
	require.NoError(t, err)

	other, err := Compute("queries", params)
	require.NoError(t, err)
	require.NotEqual(t, base, other)

	changed, err := Compute("overview", map[string]any{"startDate": "2026-08-02"})
	require.NoError(t, err)
	require.NotEqual(t, base, changed)
}

func TestComputeRawMessageParams(t *testing.T) {
	direct, err := Compute("overview", map[string]any{"rowLimit": 25})
	require.NoError(t, err)

	viaRaw, err := Compute("overview", json.RawMessage(`{"rowLimit":25}`))
	require.NoError(t, err)
	require.Equal(t, direct, viaRaw)
}

func TestComputeNilParams(t *testing.T) {
	sig, err := Compute("overview", nil)
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	_, err = Compute("  ", nil)
	require.Error(t, err)
}
