package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// detection-session workflow and the hazard store.
type Metrics struct {
	CyclesStarted   *prometheus.CounterVec // labels: kind={video,live}
	CyclesCompleted *prometheus.CounterVec // labels: kind={video,live}
	CyclesFailed    *prometheus.CounterVec // labels: kind={video,live}, reason={validation,remote,superseded}
	DetectInFlight  prometheus.Gauge

	// Remote detection endpoint metrics.
	DetectRequestDuration prometheus.Histogram

	// Hazard store metrics.
	HazardsStored    prometheus.Gauge
	StoreWriteErrors prometheus.Counter
	StoreLoadResets  prometheus.Counter
}

// NewMetrics creates and registers all workflow metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_capture",
			Name:      "cycles_started_total",
			Help:      "Detection cycles started, by observation kind.",
		}, []string{"kind"}),
		CyclesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_capture",
			Name:      "cycles_completed_total",
			Help:      "Detection cycles that produced a hazard record, by kind.",
		}, []string{"kind"}),
		CyclesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_capture",
			Name:      "cycles_failed_total",
			Help:      "Detection cycles that ended without a record, by kind and reason.",
		}, []string{"kind", "reason"}),
		DetectInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_capture",
			Name:      "detect_in_flight",
			Help:      "1 while a detection request is in flight, 0 otherwise.",
		}),
		DetectRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_capture",
			Name:      "detect_request_duration_seconds",
			Help:      "Duration of requests to the remote detection endpoint.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		HazardsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_capture",
			Name:      "hazards_stored",
			Help:      "Current number of hazard records in the store.",
		}),
		StoreWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_capture",
			Name:      "store_write_errors_total",
			Help:      "Failed persistence writes of the hazard sequence.",
		}),
		StoreLoadResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_capture",
			Name:      "store_load_resets_total",
			Help:      "Times a corrupt persisted blob was replaced by an empty store.",
		}),
	}

	prometheus.MustRegister(
		m.CyclesStarted,
		m.CyclesCompleted,
		m.CyclesFailed,
		m.DetectInFlight,
		m.DetectRequestDuration,
		m.HazardsStored,
		m.StoreWriteErrors,
		m.StoreLoadResets,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry
// to avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesStarted:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_capture", Name: "cycles_started_total"}, []string{"kind"}),
		CyclesCompleted:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_capture", Name: "cycles_completed_total"}, []string{"kind"}),
		CyclesFailed:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_capture", Name: "cycles_failed_total"}, []string{"kind", "reason"}),
		DetectInFlight:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_capture", Name: "detect_in_flight"}),
		DetectRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hazard_capture", Name: "detect_request_duration_seconds"}),
		HazardsStored:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_capture", Name: "hazards_stored"}),
		StoreWriteErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_capture", Name: "store_write_errors_total"}),
		StoreLoadResets:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_capture", Name: "store_load_resets_total"}),
	}
}
