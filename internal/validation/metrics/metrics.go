package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for validation runs.
type Metrics struct {
	// Runs by final status
	Runs *prometheus.CounterVec

	// Findings by rule and severity
	Findings *prometheus.CounterVec

	// Rule evaluation latency, excluding ruleset loading
	EvaluateLatency prometheus.Histogram

	// Ruleset load latency
	LoadLatency prometheus.Histogram

	// Ruleset load failures by error code
	LoadFailures *prometheus.CounterVec
}

// New registers validation metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uadcheck_validation_runs_total",
			Help: "Total validation runs by status",
		}, []string{"status"}),

		Findings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uadcheck_validation_findings_total",
			Help: "Total findings emitted by rule and severity",
		}, []string{"rule", "severity"}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "uadcheck_validation_evaluate_duration_seconds",
			Help:    "Duration of rule evaluation for one payload",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		LoadLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "uadcheck_ruleset_load_duration_seconds",
			Help:    "Duration of loading and compiling rule documents",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		LoadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uadcheck_ruleset_load_failures_total",
			Help: "Total ruleset load failures by error code",
		}, []string{"code"}),
	}
}

// IncrementRun records a completed run.
func (m *Metrics) IncrementRun(status string) {
	if m != nil {
		m.Runs.WithLabelValues(status).Inc()
	}
}

// AddFinding records one finding.
func (m *Metrics) AddFinding(rule, severity string) {
	if m != nil {
		m.Findings.WithLabelValues(rule, severity).Inc()
	}
}

// ObserveEvaluateLatency records rule evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// ObserveLoadLatency records ruleset load duration.
func (m *Metrics) ObserveLoadLatency(d time.Duration) {
	if m != nil {
		m.LoadLatency.Observe(d.Seconds())
	}
}

// IncrementLoadFailure records a failed ruleset load.
func (m *Metrics) IncrementLoadFailure(code string) {
	if m != nil {
		m.LoadFailures.WithLabelValues(code).Inc()
	}
}
