package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/serpwatch/serpwatch/internal/observability"
	"github.com/serpwatch/serpwatch/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)
	s.router.Get("/health/startup", s.health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Tenant-facing provider access API
	s.router.Route("/api/v1/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/status", s.api.Status)
		r.Get("/metrics/{endpoint}", s.api.Metric)
		r.Post("/refresh", s.api.Refresh)
		r.Get("/connection", s.api.ConnectionStatus)
		r.Post("/connection", s.api.Connect)
		r.Delete("/connection", s.api.Disconnect)
	})

	// OAuth redirect target, outside the versioned API since the provider
	// calls it directly.
	s.router.Get("/oauth/callback", s.api.OAuthCallback)

	// Admin signal endpoint (optional, requires SERPWATCH_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv("SERPWATCH_ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no SERPWATCH_ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
