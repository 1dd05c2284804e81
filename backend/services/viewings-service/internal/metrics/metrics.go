package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "rentwell"
	subsystem = "viewings"

	OutcomeOK        = "ok"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"

	ReleaseSucceeded = "succeeded"
	ReleaseDeferred  = "deferred"
	ReleaseFailed    = "failed"
)

// Metrics groups the service's collectors so tests can use a private registry.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	ReleaseAttempts *prometheus.CounterVec
	ReleaseLatency  prometheus.Histogram
	SweepClaimed    prometheus.Counter

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_total",
			Help:      "Viewing request transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		ReleaseAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "release_attempts_total",
			Help:      "Payment release attempts by trigger and result.",
		}, []string{"trigger", "result"}),
		ReleaseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "release_duration_seconds",
			Help:      "Latency of payment release calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		SweepClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "release_sweep_claimed_total",
			Help:      "Release queue rows claimed by the retry sweeper.",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.Transitions,
		m.ReleaseAttempts,
		m.ReleaseLatency,
		m.SweepClaimed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveTransition(action, outcome string) {
	m.Transitions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) ObserveRelease(trigger, result string) {
	m.ReleaseAttempts.WithLabelValues(trigger, result).Inc()
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
