package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "libsql", cfg.Store.Driver)
	require.Equal(t, 24*time.Hour, cfg.Cache.DefaultTTL)
	require.Equal(t, 12*time.Hour, cfg.Cache.StaleAfter)
	require.Equal(t, 20*time.Hour, cfg.Cache.ExpiringAfter)
	require.Equal(t, 25000, cfg.Quota.DailyAllocation)
	require.Equal(t, 10, cfg.Quota.ProceedThreshold)
	require.Equal(t, 5*time.Minute, cfg.Quota.Cooldown)
	require.Equal(t, 5, cfg.Retry.Attempts)
	require.Equal(t, 5, cfg.Breaker.FailureThreshold)
	require.Equal(t, 5*time.Minute, cfg.Breaker.ResetTimeout)
	require.Equal(t, 5*time.Minute, cfg.OAuth.SafetyBuffer)
	require.False(t, cfg.Provider.MockMode)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
server:
  port: 9999
quota:
  daily_allocation: 500
provider:
  mock_mode: true
retry:
  min_delay: 250ms
  max_delay: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, 500, cfg.Quota.DailyAllocation)
	require.True(t, cfg.Provider.MockMode)
	require.Equal(t, 250*time.Millisecond, cfg.Retry.MinDelay)
	require.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)

	require.Same(t, cfg, Get())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SERPWATCH_QUOTA_DAILY_ALLOCATION", "1234")
	t.Setenv("SERPWATCH_PROVIDER_MOCK_MODE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 1234, cfg.Quota.DailyAllocation)
	require.True(t, cfg.Provider.MockMode)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quota:\n  daily_allocation: 0\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "daily_allocation")
}

func TestLoadRejectsBadFreshnessOrdering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  stale_after: 21h\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expiring_after")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
