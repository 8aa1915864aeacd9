// ABOUTME: Huma API server configuration and setup
// ABOUTME: Provides OpenAPI documentation and request/response validation

package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"listings-aggregator-api/api/handlers"
	"listings-aggregator-api/api/middleware"
	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/pkg/featureflags"
)

const (
	apiTitle   = "Listings Aggregator API"
	apiVersion = "1.0.0"
)

// APIConfig holds configuration for the API
type APIConfig struct {
	Logger interfaces.Logger

	// Flags is injected into every request context
	Flags featureflags.Manager

	// RateLimit is sustained requests per second per client IP; zero disables limiting
	RateLimit float64
	RateBurst int
}

// Service is everything the handlers need from the listing service
type Service interface {
	handlers.ListingService
	handlers.HealthService
	handlers.AdminService
}

func corsOptions() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

func humaConfig() huma.Config {
	config := huma.DefaultConfig(apiTitle, apiVersion)
	config.Info.Description = "Aggregates real-estate listings from several upstream providers into one searchable store"
	return config
}

// NewAPIWithMiddleware creates a new API with middleware configured
func NewAPIWithMiddleware(cfg APIConfig) (huma.API, chi.Router) {
	router := chi.NewRouter()
	router.Use(cors.Handler(corsOptions()))

	flags := cfg.Flags
	if flags == nil {
		flags = featureflags.NewStaticManager(featureflags.Defaults)
	}
	router.Use(middleware.FeatureFlagsMiddleware(flags))

	if cfg.Logger != nil {
		router.Use(middleware.RequestLoggingMiddleware(cfg.Logger))
	}

	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
		router.Use(middleware.RateLimitMiddleware(limiter, func(ctx context.Context) bool {
			return featureflags.IsEnabled(ctx, featureflags.RateLimitEnabled)
		}))
	}

	// OpenAPI is served at /openapi.json and the docs UI at /docs
	api := humachi.New(router, humaConfig())
	return api, router
}

// RegisterRoutes registers every handler against api
func RegisterRoutes(api huma.API, svc Service) {
	handlers.NewListingHandler(svc).RegisterRoutes(api)
	handlers.NewHealthHandler(svc).RegisterRoutes(api)
	handlers.NewAdminHandler(svc).RegisterRoutes(api)
}
