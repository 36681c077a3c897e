package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// session-pull pipeline.
type Metrics struct {
	// Discovery metrics.
	DiscoveryRequests *prometheus.CounterVec // labels: tier={primary,fallback}, outcome={hit,empty,error}
	StreamProbes      *prometheus.CounterVec // labels: outcome={hit,empty,error}

	// Normalization metrics.
	RecordsNormalized prometheus.Counter
	RecordsDropped    prometheus.Counter

	// Pull metrics.
	Pulls        *prometheus.CounterVec // labels: outcome={success,not_found,error}
	PullDuration prometheus.Histogram
	WatchRunning prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={hit,miss,error}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DiscoveryRequests,
		m.StreamProbes,
		m.RecordsNormalized,
		m.RecordsDropped,
		m.Pulls,
		m.PullDuration,
		m.WatchRunning,
		m.GeocodeRequests,
		m.GeocodeCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so multiple
// tests can construct them without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DiscoveryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionpull",
			Name:      "discovery_requests_total",
			Help:      "Session-listing requests by tier and outcome.",
		}, []string{"tier", "outcome"}),
		StreamProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionpull",
			Name:      "stream_probes_total",
			Help:      "Measurement probes by outcome.",
		}, []string{"outcome"}),
		RecordsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionpull",
			Name:      "records_normalized_total",
			Help:      "Canonical records emitted by the normalizer.",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionpull",
			Name:      "records_dropped_total",
			Help:      "Raw records dropped for an absent or unparsable timestamp.",
		}),
		Pulls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionpull",
			Name:      "pulls_total",
			Help:      "Completed pulls by outcome.",
		}, []string{"outcome"}),
		PullDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sessionpull",
			Name:      "pull_duration_seconds",
			Help:      "Duration of a complete discover-resolve-normalize-sink pull.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		WatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sessionpull",
			Name:      "watch_running",
			Help:      "1 when the watch scheduler is active, 0 otherwise.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionpull",
			Name:      "geocode_requests_total",
			Help:      "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionpull",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
	}
}
