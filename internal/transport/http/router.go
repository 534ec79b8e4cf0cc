// Package httptransport assembles the HTTP router for the gateway.
package httptransport

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"planbridge/internal/platform/health"
	"planbridge/internal/platform/middleware"
)

// Mountable is anything that can attach its routes to a chi router.
type Mountable interface {
	Register(r chi.Router)
}

// RouterConfig collects the handlers and settings the router wires together.
type RouterConfig struct {
	Auth    Mountable
	Proxy   Mountable
	Health  *health.Handler
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewRouter wires all public endpoints with the middleware stack.
func NewRouter(cfg RouterConfig) *chi.Mux {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.BodyLimit(middleware.DefaultMaxBodyBytes))
	r.Use(middleware.RequestID)
	r.Use(middleware.Fingerprint)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.ContentTypeJSON)

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", cfg.Auth.Register)
		cfg.Proxy.Register(api)
	})

	return r
}
