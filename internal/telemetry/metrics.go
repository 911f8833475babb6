// Package telemetry provides application-level observability.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<TH_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint returns data in the Prometheus text
// exposition format and is intended to be scraped by a Prometheus server. It
// is NOT served by the Gin router, so it never competes with API traffic.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/projects/:id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments. Tenant ids are deliberately never used as
// labels for the same reason.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Domain metrics.
//
// LoginAttemptsTotal has one label {outcome} with values "success" and
// "failure". The failure counter intentionally does not distinguish unknown
// email from bad password or tenant mismatch; the split only exists in debug
// logs, mirroring the API's enumeration-resistant behavior.
//
// PlanLimitRejectionsTotal has one label {resource} with values "project" and
// "user". A rising rate is the upgrade-funnel signal, not an error condition.
//
// Example PromQL queries:
//   - Login failure ratio:   rate(login_attempts_total{outcome="failure"}[15m]) / rate(login_attempts_total[15m])
//   - Limit hits by kind:    sum by (resource) (increase(plan_limit_rejections_total[24h]))
var (
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total number of login attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	TenantRegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_registrations_total",
			Help: "Total number of successfully registered tenants.",
		},
	)

	PlanLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_limit_rejections_total",
			Help: "Total number of creations rejected by the tenant's plan limits, by resource kind.",
		},
		[]string{"resource"},
	)
)

// AuditWriteFailuresTotal counts audit entries that could not be persisted.
// Audit writes are fire-and-forget, so this counter is the only operational
// signal that entries are being dropped; alert on any sustained increase.
var AuditWriteFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Total number of audit log entries that failed to persist.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections
// currently held by the sql.DB connection pool. It is sampled every 30 seconds
// by StartDBStatsCollector rather than per-request to avoid the overhead of
// sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates the
// DBOpenConnections gauge. The goroutine exits cleanly when the database
// becomes unreachable (db.Ping fails), which happens automatically when the
// application shuts down and defers db.Close().
//
// Call this once, immediately after the database connection succeeds in main.go.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
