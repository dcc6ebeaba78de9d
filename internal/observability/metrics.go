package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dataset build pipeline.
type Metrics struct {
	RowsLoaded   *prometheus.CounterVec // labels: source={buildings,temperature,electricity}
	RowsRejected *prometheus.CounterVec // labels: source
	Diagnostics  *prometheus.CounterVec // labels: reason

	DatasetBuilds prometheus.Counter
	BuildErrors   prometheus.Counter
	BuildDuration prometheus.Histogram
	JoinedRecords prometheus.Gauge
	CacheLookups  *prometheus.CounterVec // labels: result={hit,miss}

	SnapshotsPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housing_etl",
			Name:      "rows_loaded_total",
			Help:      "Source rows accepted by the loaders.",
		}, []string{"source"}),
		RowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housing_etl",
			Name:      "rows_rejected_total",
			Help:      "Source rows rejected for missing required fields.",
		}, []string{"source"}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housing_etl",
			Name:      "diagnostics_total",
			Help:      "Non-fatal data problems by reason.",
		}, []string{"reason"}),
		DatasetBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "housing_etl",
			Name:      "dataset_builds_total",
			Help:      "Fresh (non-memoized) dataset builds.",
		}),
		BuildErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "housing_etl",
			Name:      "build_errors_total",
			Help:      "Dataset builds that failed before producing output.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "housing_etl",
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete load-join-enrich build.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		JoinedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "housing_etl",
			Name:      "joined_records",
			Help:      "Joined records in the most recent dataset.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housing_etl",
			Name:      "cache_lookups_total",
			Help:      "Dataset memoization lookups by result.",
		}, []string{"result"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "housing_etl",
			Name:      "snapshots_published_total",
			Help:      "Dataset snapshots published to the sink topic.",
		}),
	}

	prometheus.MustRegister(
		m.RowsLoaded,
		m.RowsRejected,
		m.Diagnostics,
		m.DatasetBuilds,
		m.BuildErrors,
		m.BuildDuration,
		m.JoinedRecords,
		m.CacheLookups,
		m.SnapshotsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsLoaded:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "housing_etl", Name: "rows_loaded_total"}, []string{"source"}),
		RowsRejected:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "housing_etl", Name: "rows_rejected_total"}, []string{"source"}),
		Diagnostics:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "housing_etl", Name: "diagnostics_total"}, []string{"reason"}),
		DatasetBuilds:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "housing_etl", Name: "dataset_builds_total"}),
		BuildErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "housing_etl", Name: "build_errors_total"}),
		BuildDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "housing_etl", Name: "build_duration_seconds"}),
		JoinedRecords:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "housing_etl", Name: "joined_records"}),
		CacheLookups:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "housing_etl", Name: "cache_lookups_total"}, []string{"result"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "housing_etl", Name: "snapshots_published_total"}),
	}
}
