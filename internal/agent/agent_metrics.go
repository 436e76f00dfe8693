package agent

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the agent subsystem.
type Metrics struct {
	StepsTotal       *prometheus.CounterVec
	StepDuration     *prometheus.HistogramVec
	StepRetries      *prometheus.HistogramVec
	BreakerOpenTotal *prometheus.CounterVec
	FlowsTotal       *prometheus.CounterVec
	FlowDuration     prometheus.Histogram
}

// NewMetrics registers and returns agent metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudops_agent_steps_total",
			Help: "Total step executions by agent and outcome.",
		}, []string{"agent", "status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fraudops_agent_step_duration_seconds",
			Help:    "Duration of step executions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms .. ~5s
		}, []string{"agent"}),
		StepRetries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fraudops_agent_step_retries",
			Help:    "Retries per step execution.",
			Buckets: prometheus.LinearBuckets(0, 1, 4), // 0 .. 3
		}, []string{"agent"}),
		BreakerOpenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudops_agent_breaker_open_total",
			Help: "Circuit breaker open events by agent.",
		}, []string{"agent"}),
		FlowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudops_agent_flows_total",
			Help: "Total agent flows by completion.",
		}, []string{"completed"}),
		FlowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudops_agent_flow_duration_seconds",
			Help:    "Duration of agent flows in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}),
	}

	reg.MustRegister(
		m.StepsTotal,
		m.StepDuration,
		m.StepRetries,
		m.BreakerOpenTotal,
		m.FlowsTotal,
		m.FlowDuration,
	)

	return m
}

// Hooks observe runner and executor events.
type Hooks struct {
	OnStep        func(agent, status string, duration float64, retries int)
	OnBreakerOpen func(agent string)
	OnFlow        func(completed bool, duration float64)
}

// Hooks returns a Hooks that increments the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnStep: func(agent, status string, duration float64, retries int) {
			m.StepsTotal.WithLabelValues(agent, status).Inc()
			if status != "breaker_open" {
				m.StepDuration.WithLabelValues(agent).Observe(duration)
				m.StepRetries.WithLabelValues(agent).Observe(float64(retries))
			}
		},
		OnBreakerOpen: func(agent string) {
			m.BreakerOpenTotal.WithLabelValues(agent).Inc()
		},
		OnFlow: func(completed bool, duration float64) {
			label := "false"
			if completed {
				label = "true"
			}
			m.FlowsTotal.WithLabelValues(label).Inc()
			m.FlowDuration.Observe(duration)
		},
	}
}
