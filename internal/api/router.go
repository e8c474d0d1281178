// Package api wires up the analytics routes and applies the middleware
// chain (RequestID → Metrics → Auth → RateLimit → Timeout).
package api

import (
	"net/http"
	"time"

	"github.com/platedesk/backoffice/internal/analytics"
	"github.com/platedesk/backoffice/internal/auth/ratelimit"
	"github.com/platedesk/backoffice/internal/auth/token"
	"github.com/platedesk/backoffice/pkg/config"
	"github.com/platedesk/backoffice/pkg/health"
	"github.com/platedesk/backoffice/pkg/metrics"
	"github.com/platedesk/backoffice/pkg/middleware"
)

// New builds the full HTTP handler with all routes and middleware.
//
// Route table:
//
//	GET /api/v1/analytics/realtime     → today's cached sales snapshot
//	GET /api/v1/analytics/forecast     → same-day hourly forecast
//	GET /api/v1/analytics/peak-hours   → hours ranked by sales volume
//	GET /api/v1/analytics/history      → recent persisted snapshots
//	GET /api/v1/analytics/cache/stats  → cache hit/miss counters
//	GET /health/live, /health/ready    → probes (unauthenticated)
//
// Middleware chain (outermost first):
//
//	RequestID → Metrics → Auth → RateLimit → Timeout → handler
func New(
	h *analytics.Handler,
	checker *health.Checker,
	validator *token.Validator,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
	cfg config.Config,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/analytics/realtime", h.RealTime)
	mux.HandleFunc("GET /api/v1/analytics/forecast", h.Forecast)
	mux.HandleFunc("GET /api/v1/analytics/peak-hours", h.PeakHours)
	mux.HandleFunc("GET /api/v1/analytics/history", h.History)
	mux.HandleFunc("GET /api/v1/analytics/cache/stats", h.CacheStats)

	// Health (unauthenticated)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(requestTimeout)(chain)
	chain = RateLimit(limiter, cfg.Auth.RateLimitPerMinute)(chain)
	chain = Auth(validator)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}
