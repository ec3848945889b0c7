// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup outcomes.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeJoined   = "joined"
	OutcomeStale    = "stale"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cache metrics
	CacheLookups  *prometheus.CounterVec
	CacheRefresh  *prometheus.HistogramVec
	InFlightLoads *prometheus.GaugeVec

	// Upstream metrics
	UpstreamLatency *prometheus.HistogramVec
	UpstreamErrors  *prometheus.CounterVec

	// Synthesis metrics
	SynthesisTotal   *prometheus.CounterVec
	ThemesSurfaced   *prometheus.CounterVec
	SynthesisLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Feed metrics
	FeedClients prometheus.Gauge

	// Health metrics
	LastSkyRefresh prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "transit_synth"
	}

	return &Metrics{
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by tier and outcome",
		}, []string{"tier", "outcome"}),
		CacheRefresh: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of cache recomputations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier"}),
		InFlightLoads: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "in_flight_loads",
			Help:      "Number of in-flight recomputations by tier",
		}, []string{"tier"}),

		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ephemeris",
			Name:      "call_latency_seconds",
			Help:      "Ephemeris gateway call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ephemeris",
			Name:      "call_errors_total",
			Help:      "Total number of failed ephemeris gateway calls",
		}, []string{"method"}),

		SynthesisTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "synthesis",
			Name:      "runs_total",
			Help:      "Total number of dashboard syntheses by source and degradation",
		}, []string{"source", "degraded"}),
		ThemesSurfaced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "synthesis",
			Name:      "themes_surfaced_total",
			Help:      "Total number of surfaced themes by focus area",
		}, []string{"focus"}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "synthesis",
			Name:      "duration_seconds",
			Help:      "Dashboard synthesis duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		FeedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Number of connected daily sky feed clients",
		}),

		LastSkyRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_sky_refresh_timestamp",
			Help:      "Unix timestamp of the last successful daily sky refresh",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCacheLookup increments the cache lookup counter.
func RecordCacheLookup(tier, outcome string) {
	DefaultMetrics.CacheLookups.WithLabelValues(tier, outcome).Inc()
}

// RecordCacheRefresh records the duration of one recomputation.
func RecordCacheRefresh(tier string, seconds float64) {
	DefaultMetrics.CacheRefresh.WithLabelValues(tier).Observe(seconds)
}

// TrackInFlight increments the in-flight gauge and returns a func that decrements it.
func TrackInFlight(tier string) func() {
	g := DefaultMetrics.InFlightLoads.WithLabelValues(tier)
	g.Inc()
	return g.Dec
}

// RecordUpstreamCall records ephemeris call latency and failures.
func RecordUpstreamCall(method string, seconds float64, err error) {
	DefaultMetrics.UpstreamLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.UpstreamErrors.WithLabelValues(method).Inc()
	}
}

// RecordSynthesis records one dashboard synthesis.
func RecordSynthesis(source string, degraded bool, seconds float64) {
	d := "false"
	if degraded {
		d = "true"
	}
	DefaultMetrics.SynthesisTotal.WithLabelValues(source, d).Inc()
	DefaultMetrics.SynthesisLatency.Observe(seconds)
}

// RecordThemeSurfaced increments the surfaced theme counter for a focus area.
func RecordThemeSurfaced(focus string) {
	DefaultMetrics.ThemesSurfaced.WithLabelValues(focus).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetFeedClients sets the connected feed client gauge.
func SetFeedClients(n int) {
	DefaultMetrics.FeedClients.Set(float64(n))
}

// RecordSkyRefresh sets the last sky refresh timestamp.
func RecordSkyRefresh(unix int64) {
	DefaultMetrics.LastSkyRefresh.Set(float64(unix))
}
