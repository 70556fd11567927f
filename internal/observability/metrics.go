package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the catalog and run collectors.
const (
	OutcomeOK           = "ok"
	OutcomeAuthRequired = "auth_required"
	OutcomeAPIError     = "api_error"
	OutcomeMalformed    = "malformed"
	OutcomeTransport    = "transport"
	OutcomeInvalid      = "invalid"
	OutcomeCacheHit     = "cache_hit"
)

var (
	// catalogRequests counts catalog requests by operation and outcome
	catalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depcheck_catalog_requests_total",
		Help: "Total catalog requests by operation and outcome",
	}, []string{"op", "outcome"})

	// catalogDuration tracks catalog request latency
	catalogDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "depcheck_catalog_request_duration_seconds",
		Help:    "Catalog request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
	}, []string{"op"})

	// resolveRuns counts resolution runs by outcome
	resolveRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depcheck_resolve_runs_total",
		Help: "Total resolution runs by outcome",
	}, []string{"outcome"})

	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depcheck_resolve_duration_seconds",
		Help:    "Resolution run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// discoveredItems tracks how many items a successful run discovered
	discoveredItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depcheck_discovered_items",
		Help:    "Items discovered per successful run",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
	})

	placeholders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depcheck_placeholders_total",
		Help: "Dependent items replaced by an inaccessible placeholder",
	})
)

// RecordCatalogRequest records one catalog request.
func RecordCatalogRequest(op, outcome string, d time.Duration) {
	catalogRequests.WithLabelValues(op, outcome).Inc()
	if outcome != OutcomeCacheHit {
		catalogDuration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// RecordResolveRun records a finished resolution run. discovered is only
// observed for successful runs.
func RecordResolveRun(outcome string, d time.Duration, discovered int) {
	resolveRuns.WithLabelValues(outcome).Inc()
	resolveDuration.Observe(d.Seconds())
	if outcome == OutcomeOK {
		discoveredItems.Observe(float64(discovered))
	}
}

// RecordPlaceholder records one placeholder substitution.
func RecordPlaceholder() {
	placeholders.Inc()
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
