// Package metrics instruments command sessions with Prometheus collectors.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

const namespace = "netdiag"

// Metrics holds the session collectors and the registry they live in.
type Metrics struct {
	invocations *prometheus.CounterVec
	lines       *prometheus.CounterVec
	records     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	active      *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates the collectors on a private registry, together with the Go and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Finished invocations by tool and terminal status",
		}, []string{"tool", "status"}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Output lines forwarded to the sink",
		}, []string{"tool"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Structured records emitted by the parsers",
		}, []string{"tool", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Wall time from process start to terminal state",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"tool"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_invocations",
			Help:      "Invocations currently running",
		}, []string{"tool"}),
		registry: registry,
	}

	registry.MustRegister(m.invocations, m.lines, m.records, m.duration, m.active)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) InvocationStarted(tool lib.Tool) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(tool.String()).Inc()
}

func (m *Metrics) InvocationCompleted(tool lib.Tool, status lib.SessionState, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(tool.String()).Dec()
	m.invocations.WithLabelValues(tool.String(), status.String()).Inc()
	m.duration.WithLabelValues(tool.String()).Observe(elapsed.Seconds())
}

// SpawnFailed counts an invocation that never got a process.
func (m *Metrics) SpawnFailed(tool lib.Tool) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(tool.String(), lib.StateFailed.String()).Inc()
}

func (m *Metrics) LineForwarded(tool lib.Tool) {
	if m == nil {
		return
	}
	m.lines.WithLabelValues(tool.String()).Inc()
}

func (m *Metrics) RecordEmitted(tool lib.Tool, kind lib.RecordKind) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(tool.String(), string(kind)).Inc()
}
