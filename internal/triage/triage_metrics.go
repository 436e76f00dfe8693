package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal       *prometheus.CounterVec
	TriageDuration     prometheus.Histogram
	AlertsCreatedTotal *prometheus.CounterVec
	AlertsUpdatedTotal *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudops_triage_runs_total",
			Help: "Total triage runs by decision.",
		}, []string{"decision"}),
		TriageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudops_triage_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
		}),
		AlertsCreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudops_alerts_created_total",
			Help: "Alerts raised by triage, by severity.",
		}, []string{"severity"}),
		AlertsUpdatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudops_alerts_updated_total",
			Help: "Analyst alert updates by resulting status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.AlertsCreatedTotal,
		m.AlertsUpdatedTotal,
	)

	return m
}

// Hooks observe triage events.
type Hooks struct {
	OnTriage       func(decision string, duration float64)
	OnAlertCreated func(severity string)
	OnAlertUpdated func(status string)
}

// Hooks returns a Hooks that increments the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnTriage: func(decision string, duration float64) {
			m.TriagesTotal.WithLabelValues(decision).Inc()
			m.TriageDuration.Observe(duration)
		},
		OnAlertCreated: func(severity string) {
			m.AlertsCreatedTotal.WithLabelValues(severity).Inc()
		},
		OnAlertUpdated: func(status string) {
			m.AlertsUpdatedTotal.WithLabelValues(status).Inc()
		},
	}
}
