// Package telemetry provides application-level observability for the directory service.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by cmd/server:
//
//	GET http://<host>:<PHUB_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Directory size and creations by path and outcome
//   - Search and session activity
//   - Client cache refresh outcomes (dirctl and other in-process consumers)
//   - Snapshot publish outcomes
//   - Database connection pool gauge (postgres backend only)
//
// HTTP metrics use c.FullPath() so free-text query strings never become label values.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
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

// Creation path and outcome label values for OrganizationCreationsTotal.
const (
	CreationPathDirect     = "direct"
	CreationPathSubmission = "submission"

	OutcomeCreated  = "created"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Directory metrics.
//
// DirectoryOrganizations is refreshed after every list and every successful create.
// OrganizationCreationsTotal is labelled {path, outcome}; path is "direct" for
// POST /api/organizations and "submission" for the wizard endpoint.
//
// Example PromQL queries:
//   - Rejection ratio:  sum(rate(directory_creations_total{outcome="rejected"}[1h])) / sum(rate(directory_creations_total[1h]))
var (
	DirectoryOrganizations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "directory_organizations",
			Help: "Number of organizations currently listed in the directory.",
		},
	)

	OrganizationCreationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_creations_total",
			Help: "Total number of organization create attempts, by creation path and outcome.",
		},
		[]string{"path", "outcome"},
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_search_requests_total",
			Help: "Total number of server-side filter evaluations, by source (search, session) and whether any filter was active.",
		},
		[]string{"source", "filtered"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "directory_sessions_active",
			Help: "Number of browsing sessions holding search/filter state.",
		},
	)

	RateLimitedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_requests_total",
			Help: "Total number of requests rejected by the rate limiter, by limiter backend.",
		},
		[]string{"backend"},
	)
)

// Client cache refresh outcome label values.
const (
	RefreshApplied    = "applied"
	RefreshSuperseded = "superseded"
	RefreshFailed     = "failed"
)

// ClientCacheRefreshesTotal counts list fetches made by the data access cache,
// labelled {outcome}: "applied", "superseded" (a newer fetch already landed) or "failed".
var ClientCacheRefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "client_cache_refreshes_total",
		Help: "Total number of organization list refreshes made by the client cache, by outcome.",
	},
	[]string{"outcome"},
)

// Snapshot publish outcome label values.
const (
	PublishUploaded  = "uploaded"
	PublishUnchanged = "unchanged"
	PublishFailed    = "failed"
)

// SnapshotPublishesTotal counts snapshot publisher runs by outcome.
//
// Example PromQL queries:
//   - Alert on stuck publisher:  increase(snapshot_publishes_total{outcome="failed"}[30m]) > 3
var SnapshotPublishesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "snapshot_publishes_total",
		Help: "Total number of directory snapshot publish runs, by outcome.",
	},
	[]string{"outcome"},
)

// BackgroundPanicsTotal counts panics recovered from background goroutines,
// labelled by task name.
var BackgroundPanicsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "background_panics_total",
		Help: "Total number of panics recovered in background goroutines, by task.",
	},
	[]string{"task"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool. It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// DBStatsInterval is how often StartDBStatsCollector samples the pool.
var DBStatsInterval = 30 * time.Second

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every DBStatsInterval and updates the DBOpenConnections gauge.
// The goroutine exits when ctx is cancelled or the database becomes unreachable.
func StartDBStatsCollector(ctx context.Context, db *sql.DB) {
	interval := DBStatsInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
					return
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	}()
}
