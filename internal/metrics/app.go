package metrics

import (
	"time"

	"github.com/serpwatch/serpwatch/internal/observability"
)

// Application-level metrics following Prometheus conventions
const (
	FetchTotal         = "app_provider_fetch_total"
	FetchDuration      = "app_provider_fetch_duration_ms"
	CacheLookupsTotal  = "app_cache_lookups_total"
	RetriesTotal       = "app_provider_retries_total"
	BreakerTransitions = "app_breaker_transitions_total"
	QuotaUsed          = "app_quota_used"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordFetch records a provider fetch with its outcome and duration.
func RecordFetch(endpoint string, success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	_ = observability.TelemetrySystem.Counter(
		FetchTotal,
		1,
		map[string]string{"endpoint": endpoint, "status": status},
	)
	_ = observability.TelemetrySystem.Histogram(
		FetchDuration,
		duration,
		map[string]string{"endpoint": endpoint},
	)
}

// RecordCacheLookup records a cache hit or miss for an endpoint.
func RecordCacheLookup(endpoint string, hit bool) {
	if observability.TelemetrySystem == nil {
		return
	}

	outcome := "miss"
	if hit {
		outcome = "hit"
	}

	_ = observability.TelemetrySystem.Counter(
		CacheLookupsTotal,
		1,
		map[string]string{"endpoint": endpoint, "outcome": outcome},
	)
}

// RecordRetry records one retry attempt against the provider.
func RecordRetry(endpoint string) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		RetriesTotal,
		1,
		map[string]string{"endpoint": endpoint},
	)
}

// RecordBreakerTransition records a circuit breaker state change for a tenant.
func RecordBreakerTransition(from, to string) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		BreakerTransitions,
		1,
		map[string]string{"from": from, "to": to},
	)
}

// SetQuotaUsed reports the used daily quota for a tenant.
func SetQuotaUsed(tenantID string, used int) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Gauge(
		QuotaUsed,
		float64(used),
		map[string]string{"tenant": tenantID},
	)
}

// RecordHealthCheck records a health check execution.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	_ = observability.TelemetrySystem.Counter(
		HealthCheckTotal,
		1,
		map[string]string{"check": checkName, "status": status},
	)
	_ = observability.TelemetrySystem.Histogram(
		HealthCheckDuration,
		duration,
		map[string]string{"check": checkName},
	)
}

// SetServerStartTime records the server start time (Unix timestamp).
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}

// SetServerUptime records the server uptime in seconds.
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerUptime, float64(seconds), nil)
	}
}
