package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planbridge/internal/auth"
	"planbridge/internal/license"
	"planbridge/internal/platform/config"
	"planbridge/internal/platform/health"
	"planbridge/internal/platform/logger"
	"planbridge/internal/platform/metrics"
	redisplatform "planbridge/internal/platform/redis"
	"planbridge/internal/proxy"
	"planbridge/internal/session"
	httptransport "planbridge/internal/transport/http"
	"planbridge/internal/upstream"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing planbridge",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"upstream", cfg.UpstreamBaseURL,
	)

	m := metrics.New()

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	var store session.Store
	if redisClient != nil {
		store = session.NewRedisStore(redisClient.Client)
		log.Info("session store: redis")
	} else {
		mem := session.NewMemoryStore()
		store = mem
		go janitor(mem, log)
		log.Info("session store: memory")
	}

	sessions := session.NewManager(store, cfg.SessionSecret,
		session.WithCookieName(cfg.SessionCookieName),
		session.WithTTL(cfg.SessionTTL),
		session.WithSecureCookies(cfg.Production()),
		session.WithLogger(log),
	)

	licenses := license.New(cfg.LicenseFile,
		license.WithMinInterval(cfg.LicenseRetryInterval),
		license.WithLogger(log),
	)

	client, err := upstream.New(cfg.UpstreamBaseURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		upstream.WithLogger(log),
		upstream.WithMetrics(m),
		upstream.WithTracer(upstream.NewOTelTracer()),
		upstream.WithMachineID(licenses.Get),
	)
	if err != nil {
		log.Error("upstream client init failed", "error", err)
		os.Exit(1)
	}

	flows := auth.New(client, sessions,
		auth.WithLogger(log),
		auth.WithMetrics(m),
	)

	healthHandler := health.New(cfg.Environment)
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
		go poolStats(redisClient)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:    auth.NewHandler(flows, log),
		Proxy:   proxy.NewHandler(client, sessions, log),
		Health:  healthHandler,
		Logger:  log,
		Timeout: cfg.UpstreamTimeout + 5*time.Second,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}

	log.Info("server stopped")
}

// janitor evicts expired in-memory sessions so a long-lived process without
// Redis does not grow unbounded.
func janitor(store *session.MemoryStore, log *slog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		n := store.DeleteExpired(context.Background(), time.Now())
		if n > 0 {
			log.Debug("expired sessions evicted", "count", n)
		}
	}
}

func poolStats(c *redisplatform.Client) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		c.RecordPoolStats()
	}
}
