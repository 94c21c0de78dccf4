package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/marketplace-payments/internal/payment/metrics"
	"github.com/tair/marketplace-payments/pkg/auth"
)

// MiddlewareConfig holds middleware configuration
type MiddlewareConfig struct {
	EnableLogging bool
	EnableTracing bool
	Metrics       *metrics.Metrics
	Signer        *auth.Signer
	Proxies       TrustedProxies
}

// DefaultMiddlewareConfig returns default middleware configuration
func DefaultMiddlewareConfig(signer *auth.Signer, m *metrics.Metrics, proxies TrustedProxies) MiddlewareConfig {
	return MiddlewareConfig{
		EnableLogging: true,
		EnableTracing: true,
		Metrics:       m,
		Signer:        signer,
		Proxies:       proxies,
	}
}

// RegisterMiddlewares registers all middlewares to the router
func RegisterMiddlewares(router *mux.Router, config MiddlewareConfig) {
	// Tracing first so the logging middleware sees the span
	if config.EnableTracing {
		router.Use(func(next http.Handler) http.Handler {
			return TracingMiddleware("http-request", next)
		})
	}

	if config.EnableLogging {
		router.Use(LoggingMiddleware)
	}

	if config.Metrics != nil {
		router.Use(MetricsMiddleware(config.Metrics))
	}
}

// GetAuthMiddleware returns the auth middleware
func (config MiddlewareConfig) GetAuthMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return AuthMiddleware(config.Signer)
}

// GetAdminMiddleware returns the admin middleware
func (config MiddlewareConfig) GetAdminMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return AdminMiddleware(config.Signer)
}
