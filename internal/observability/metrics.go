package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prediction pipeline.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec // labels: variant={realtime,historical}, outcome={success,schema_unavailable,no_reference,record_error}
	RunDuration  prometheus.Histogram
	PredictedCFS prometheus.Gauge

	// Gauge fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: query={latest,window}, outcome={success,empty,transport_error,parse_error}
	FetchDuration *prometheus.HistogramVec // labels: query={latest,window}
	CacheLookups  *prometheus.CounterVec   // labels: result={hit,miss}

	// Recorder metrics.
	RecordsWritten  *prometheus.CounterVec // labels: outcome={appended,updated}
	FeaturesMissing prometheus.Counter

	SchedulerRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PredictedCFS,
		m.FetchRequests,
		m.FetchDuration,
		m.CacheLookups,
		m.RecordsWritten,
		m.FeaturesMissing,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creek_flow",
			Name:      "prediction_runs_total",
			Help:      "Prediction runs by variant and outcome.",
		}, []string{"variant", "outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "creek_flow",
			Name:      "prediction_run_duration_seconds",
			Help:      "Duration of a complete assemble-score-record run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PredictedCFS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "creek_flow",
			Name:      "predicted_cfs",
			Help:      "Most recent predicted Sugar Creek flow in CFS.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creek_flow",
			Name:      "usgs_fetch_requests_total",
			Help:      "USGS API requests by query type and outcome.",
		}, []string{"query", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "creek_flow",
			Name:      "usgs_fetch_duration_seconds",
			Help:      "USGS API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"query"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creek_flow",
			Name:      "usgs_cache_lookups_total",
			Help:      "Historical window cache lookups by result.",
		}, []string{"result"}),
		RecordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creek_flow",
			Name:      "prediction_records_written_total",
			Help:      "Observation log writes by outcome.",
		}, []string{"outcome"}),
		FeaturesMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "creek_flow",
			Name:      "features_missing_total",
			Help:      "Features that resolved to no usable reading during assembly.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "creek_flow",
			Name:      "scheduler_running",
			Help:      "1 when the cron scheduler is active, 0 when shut down.",
		}),
	}
}
