package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cotcli/internal/config"
	apierrors "cotcli/internal/errors"
	"cotcli/internal/infrastructure"
	"cotcli/internal/middleware"
)

// RouterDeps are the collaborators of the API router.
type RouterDeps struct {
	Logger    *slog.Logger
	Markets   MarketServiceInterface
	Health    HealthServiceInterface
	Providers *infrastructure.OTelProviders
	Metrics   *infrastructure.Metrics
	RateLimit config.RateLimitConfig
}

// NewRouter wires middleware and routes.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	errorHandler := apierrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if deps.Providers != nil {
		r.Use(middleware.NewOTelMiddleware(deps.Providers, deps.Metrics).Handler)
	}
	r.Use(middleware.StructuredLogger(infrastructure.WithComponent(logger, "http")))
	r.Use(middleware.Recoverer(logger))
	if deps.RateLimit.Enabled {
		r.Use(middleware.NewRateLimiter(deps.RateLimit.RPS, deps.RateLimit.Burst, logger).Handler)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Get("/healthz", NewHealthHandler(deps.Health).Healthz)
	if deps.Providers != nil && deps.Providers.PrometheusHTTP != nil {
		r.Method(http.MethodGet, "/metrics", deps.Providers.PrometheusHTTP)
	}
	r.Mount("/api/v1", NewMarketHandler(deps.Markets, logger, errorHandler).Routes())
	return r
}
