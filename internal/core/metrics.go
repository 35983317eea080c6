package core

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	previews *prometheus.CounterVec
	rows     *prometheus.CounterVec
	commits  *prometheus.CounterVec
	outcomes *prometheus.CounterVec

	commitDuration *prometheus.HistogramVec

	inFlight prometheus.GaugeFunc
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		previews: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keel",
			Subsystem: "import",
			Name:      "previews_total",
			Help:      "Total number of preview passes (also run by every commit).",
		}, []string{"import_type", "result"}),
		rows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keel",
			Subsystem: "import",
			Name:      "rows_classified_total",
			Help:      "Rows classified by preview status.",
		}, []string{"import_type", "status"}),
		commits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keel",
			Subsystem: "import",
			Name:      "commits_total",
			Help:      "Commit attempts by result (committed, noop, aborted, failed).",
		}, []string{"import_type", "result"}),
		outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keel",
			Subsystem: "import",
			Name:      "commit_rows_total",
			Help:      "Committed rows by outcome.",
		}, []string{"import_type", "outcome"}),
		commitDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "keel",
			Subsystem: "import",
			Name:      "commit_duration_seconds",
			Help:      "Latency distribution of commit calls, preview re-run included.",
			Buckets: []float64{
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10, 30, 60,
			},
		}, []string{"import_type", "result"}),
	}
})

func importMetrics() *metrics {
	return metricsSingleton()
}

var registerInFlight sync.Once

// RegisterLimiterMetrics exposes the limiter's active slot count as a gauge.
// Only the first call has an effect.
func RegisterLimiterMetrics(l *ImportLimiter) {
	registerInFlight.Do(func() {
		m := importMetrics()
		m.inFlight = promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "keel",
			Subsystem: "import",
			Name:      "in_flight",
			Help:      "Previews and commits currently holding a limiter slot.",
		}, func() float64 { return float64(l.ActiveCount()) })
	})
}

func observeRows(importType string, report *PreviewReport) {
	m := importMetrics()
	m.rows.WithLabelValues(importType, string(StatusReady)).Add(float64(report.Summary.Ready))
	m.rows.WithLabelValues(importType, string(StatusReadyWithWarnings)).Add(float64(report.Summary.ReadyWithWarnings))
	m.rows.WithLabelValues(importType, string(StatusSkip)).Add(float64(report.Summary.Skip))
	m.rows.WithLabelValues(importType, string(StatusFail)).Add(float64(report.Summary.Fail))
}

func observeCommit(importType string, result *CommitResult) {
	m := importMetrics()
	m.outcomes.WithLabelValues(importType, string(OutcomeCreated)).Add(float64(result.Summary.Created))
	m.outcomes.WithLabelValues(importType, string(OutcomeSkipped)).Add(float64(result.Summary.Skipped + result.Summary.Fail))
}
