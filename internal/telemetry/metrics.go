// Package telemetry provides logging setup and Prometheus metrics for Tender Insight Hub.
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started in cmd/server:
//
//	GET http://<host>:<TIH_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// HTTP metrics are labelled with the gin route template (c.FullPath()) rather
// than the raw URL, so tender ids never become label values.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tenderhub/tender-insight-hub/internal/safego"
)

// HTTP metrics, labelled by method, route template and status code.
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

// Tender domain metrics.
//
// TenderSearchesTotal counts search and export requests; the "filtered" label
// is "true" when at least one predicate was supplied.
//
// Example PromQL:
//   - Share of filtered searches:  sum(rate(tender_searches_total{filtered="true"}[1h])) / sum(rate(tender_searches_total[1h]))
var (
	TenderSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_searches_total",
			Help: "Total number of tender searches, by whether any filter was applied.",
		},
		[]string{"filtered"},
	)

	TenderAnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_analyses_total",
			Help: "Total number of readiness analyses, by scorer and outcome.",
		},
		[]string{"scorer", "outcome"},
	)

	TenderExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tender_exports_total",
			Help: "Total number of XLSX tender exports generated.",
		},
	)

	DocumentUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_document_uploads_total",
			Help: "Total number of tender document uploads, by storage backend.",
		},
		[]string{"backend"},
	)
)

// Account metrics.
var (
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_registrations_total",
			Help: "Total number of organization registrations, by plan.",
		},
		[]string{"plan"},
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_login_attempts_total",
			Help: "Total number of login attempts, by result (success, invalid, error).",
		},
		[]string{"result"},
	)
)

// OCDS ingestion metrics, recorded by the background sync job.
//
// Example PromQL:
//   - Alert on repeated failures:  increase(ocds_sync_runs_total{result="error"}[6h]) > 2
var (
	OCDSSyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocds_sync_runs_total",
			Help: "Total number of OCDS sync passes, by result.",
		},
		[]string{"result"},
	)

	OCDSSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ocds_sync_duration_seconds",
			Help:    "Duration of a single OCDS sync pass.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	OCDSTendersIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ocds_tenders_ingested_total",
			Help: "Total number of tenders created or updated from OCDS releases.",
		},
	)

	TendersClosedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tenders_closed_total",
			Help: "Total number of open tenders closed after their deadline passed.",
		},
	)
)

// DBOpenConnections tracks the number of open connections held by the
// sql.DB pool. It is sampled by StartDBStatsCollector rather than per request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples the connection pool every interval until ctx
// is cancelled or the database stops answering pings.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	safego.Go("db-stats-collector", func() {
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
	})
}
