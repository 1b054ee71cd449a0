// Package metrics registers the Prometheus instrumentation for the
// import and aggregation jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "energy_import"

// ImportMetrics counts rows and runs of the import job.
type ImportMetrics struct {
	RowsParsed    prometheus.Counter
	RowsImported  prometheus.Counter
	RowsFailed    prometheus.Counter
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	RollupRefresh prometheus.Counter
}

// New registers the import metrics against reg.
func New(reg prometheus.Registerer) *ImportMetrics {
	m := &ImportMetrics{
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Consumption rows parsed from CSV files.",
		}),
		RowsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_imported_total",
			Help:      "Consumption rows committed to the database.",
		}),
		RowsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_failed_total",
			Help:      "Rows dropped during parsing or normalization.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Import runs by terminal status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full import run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		RollupRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollup_refreshes_total",
			Help:      "Completed rollup / summary-cache refreshes.",
		}),
	}
	reg.MustRegister(m.RowsParsed, m.RowsImported, m.RowsFailed, m.Runs, m.RunDuration, m.RollupRefresh)
	return m
}
