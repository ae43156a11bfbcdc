package validator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus instruments. Attach with
// Engine.SetMetrics; a nil Metrics disables instrumentation.
type Metrics struct {
	ValidationsTotal   *prometheus.CounterVec
	IssuesTotal        *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	TruncatedTotal     prometheus.Counter
}

// NewMetrics creates and registers the validation metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_validations_total",
				Help: "Total number of validate calls",
			},
			[]string{"class", "valid"},
		),
		IssuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_validation_issues_total",
				Help: "Total validation issues by severity",
			},
			[]string{"class", "severity"},
		),
		ValidationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lattice_validation_duration_seconds",
				Help:    "Validate call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"class"},
		),
		TruncatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lattice_validation_reports_truncated_total",
				Help: "Reports that exhausted their issue budget",
			},
		),
	}

	registry.MustRegister(
		m.ValidationsTotal,
		m.IssuesTotal,
		m.ValidationDuration,
		m.TruncatedTotal,
	)
	return m
}

func (m *Metrics) observe(class string, report *Report, elapsed time.Duration) {
	valid := "false"
	if report.Valid() {
		valid = "true"
	}
	m.ValidationsTotal.WithLabelValues(class, valid).Inc()
	m.ValidationDuration.WithLabelValues(class).Observe(elapsed.Seconds())
	for severity, count := range report.Summary() {
		m.IssuesTotal.WithLabelValues(class, severity.String()).Add(float64(count))
	}
	if report.Truncated {
		m.TruncatedTotal.Inc()
	}
}
