package server

import (
	"github.com/voxsentry/voxsentry/internal/server/handlers"
)

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes() {
	// Standard health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Prometheus metrics proxy (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Resilience counters, breaker state and limiter tokens as JSON
	s.router.Get("/stats", handlers.StatsHandler)
}
