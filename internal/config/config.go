package config

import "time"

// Config represents the complete application configuration.
// Values come from three layers: built-in defaults, an optional YAML config
// file, and SERPWATCH_* environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Provider ProviderConfig `mapstructure:"provider"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig contains response cache TTL and freshness settings.
type CacheConfig struct {
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
	ExpiringAfter time.Duration `mapstructure:"expiring_after"`
}

// QuotaConfig contains the daily provider call budget settings.
type QuotaConfig struct {
	DailyAllocation  int           `mapstructure:"daily_allocation"`
	ProceedThreshold int           `mapstructure:"proceed_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// RetryConfig contains the backoff executor settings.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

// BreakerConfig contains per-tenant circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

// ProviderConfig selects and configures the search analytics provider.
// MockMode picks the mock provider at construction time; the choice is
// never re-inspected per call.
type ProviderConfig struct {
	MockMode bool          `mapstructure:"mock_mode"`
	MockSeed int64         `mapstructure:"mock_seed"`
	BaseURL  string        `mapstructure:"base_url"`
	SiteURL  string        `mapstructure:"site_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// OAuthConfig contains provider OAuth client settings.
type OAuthConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	AuthURL      string        `mapstructure:"auth_url"`
	TokenURL     string        `mapstructure:"token_url"`
	RedirectURL  string        `mapstructure:"redirect_url"`
	Scopes       []string      `mapstructure:"scopes"`
	StateSecret  string        `mapstructure:"state_secret"`
	StateMaxAge  time.Duration `mapstructure:"state_max_age"`
	SafetyBuffer time.Duration `mapstructure:"safety_buffer"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level.
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level.
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
