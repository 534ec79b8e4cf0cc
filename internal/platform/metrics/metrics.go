package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	// Upstream bridge metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec

	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsCleared prometheus.Counter

	// Login metrics
	LoginAttempts prometheus.Counter
	LoginFailures prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "planbridge_upstream_requests_total",
			Help: "Total upstream API requests by endpoint and status class",
		}, []string{"endpoint", "status"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planbridge_upstream_latency_seconds",
			Help:    "Latency of upstream API requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "planbridge_active_sessions",
			Help: "Current number of active browser sessions",
		}),
		SessionsCleared: promauto.NewCounter(prometheus.CounterOpts{
			Name: "planbridge_sessions_cleared_total",
			Help: "Total sessions destroyed after an invalid-token identity refresh",
		}),
		LoginAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "planbridge_login_attempts_total",
			Help: "Total login attempts",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "planbridge_login_failures_total",
			Help: "Total failed login attempts",
		}),
	}
}
