// Package config provides centralized configuration management for Serpwatch.
// It layers built-in defaults, an optional YAML config file, and SERPWATCH_*
// environment variables, decoded into the typed Config struct.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const envPrefix = "SERPWATCH"

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// Load reads configuration from defaults, the optional config file, and the
// environment. Safe to call multiple times (e.g. on SIGHUP reload).
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$XDG_CONFIG_HOME/serpwatch")
		v.AddConfigPath("$HOME/.config/serpwatch")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// A missing optional config file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create config decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = cfg
	configMu.Unlock()

	return cfg, nil
}

// Get returns the last loaded configuration, or nil before Load succeeds.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "serpwatch.db")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("cache.default_ttl", 24*time.Hour)
	v.SetDefault("cache.stale_after", 12*time.Hour)
	v.SetDefault("cache.expiring_after", 20*time.Hour)

	v.SetDefault("quota.daily_allocation", 25000)
	v.SetDefault("quota.proceed_threshold", 10)
	v.SetDefault("quota.cooldown", 5*time.Minute)

	v.SetDefault("retry.attempts", 5)
	v.SetDefault("retry.min_delay", time.Second)
	v.SetDefault("retry.max_delay", time.Minute)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout", 5*time.Minute)

	v.SetDefault("provider.mock_mode", false)
	v.SetDefault("provider.mock_seed", 0)
	v.SetDefault("provider.base_url", "https://searchanalytics.googleapis.com")
	v.SetDefault("provider.site_url", "")
	v.SetDefault("provider.timeout", 30*time.Second)

	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.redirect_url", "")
	v.SetDefault("oauth.state_secret", "")
	v.SetDefault("oauth.auth_url", "https://accounts.google.com/o/oauth2/v2/auth")
	v.SetDefault("oauth.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("oauth.scopes", []string{"https://www.googleapis.com/auth/webmasters.readonly"})
	v.SetDefault("oauth.state_max_age", time.Hour)
	v.SetDefault("oauth.safety_buffer", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
}

func validate(cfg *Config) error {
	if cfg.Quota.DailyAllocation <= 0 {
		return fmt.Errorf("quota.daily_allocation must be positive, got %d", cfg.Quota.DailyAllocation)
	}
	if cfg.Quota.ProceedThreshold < 0 {
		return fmt.Errorf("quota.proceed_threshold must not be negative, got %d", cfg.Quota.ProceedThreshold)
	}
	if cfg.Retry.Attempts < 0 {
		return fmt.Errorf("retry.attempts must not be negative, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.MinDelay <= 0 || cfg.Retry.MaxDelay < cfg.Retry.MinDelay {
		return fmt.Errorf("retry delays are inconsistent: min %s, max %s", cfg.Retry.MinDelay, cfg.Retry.MaxDelay)
	}
	if cfg.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be positive, got %d", cfg.Breaker.FailureThreshold)
	}
	if cfg.Cache.ExpiringAfter <= cfg.Cache.StaleAfter {
		return fmt.Errorf("cache.expiring_after (%s) must exceed cache.stale_after (%s)",
			cfg.Cache.ExpiringAfter, cfg.Cache.StaleAfter)
	}
	if !cfg.Provider.MockMode && strings.TrimSpace(cfg.Provider.BaseURL) == "" {
		return fmt.Errorf("provider.base_url is required unless mock_mode is enabled")
	}
	return nil
}
