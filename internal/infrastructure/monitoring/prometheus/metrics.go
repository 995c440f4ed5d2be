// Package prometheus registers and exposes the platform's metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the platform records into.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	EvidenceMutationsTotal *prometheus.CounterVec
	ComparableSetSize      *prometheus.GaugeVec

	CompileAttemptsTotal *prometheus.CounterVec
	CompileDuration      prometheus.Histogram

	ContradictionFindingsTotal *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := newFactory(registry)

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.counterVec(prometheus.CounterOpts{
			Namespace: "valuation",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: factory.histogramVec(prometheus.HistogramOpts{
			Namespace: "valuation",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		EvidenceMutationsTotal: factory.counterVec(prometheus.CounterOpts{
			Namespace: "valuation",
			Subsystem: "evidence",
			Name:      "mutations_total",
			Help:      "Evidence create/update/delete operations.",
		}, []string{"operation"}),

		ComparableSetSize: factory.gaugeVec(prometheus.GaugeOpts{
			Namespace: "valuation",
			Subsystem: "evidence",
			Name:      "comparable_set_size",
			Help:      "Current comparable-set size per property.",
		}, []string{"property"}),

		CompileAttemptsTotal: factory.counterVec(prometheus.CounterOpts{
			Namespace: "valuation",
			Subsystem: "report",
			Name:      "compile_attempts_total",
			Help:      "Compilation attempts by final state.",
		}, []string{"state"}),

		CompileDuration: factory.histogram(prometheus.HistogramOpts{
			Namespace: "valuation",
			Subsystem: "report",
			Name:      "compile_duration_seconds",
			Help:      "End-to-end compilation latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		ContradictionFindingsTotal: factory.counterVec(prometheus.CounterOpts{
			Namespace: "valuation",
			Subsystem: "contradiction",
			Name:      "findings_total",
			Help:      "Contradiction findings by severity.",
		}, []string{"severity"}),
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveCompile records one compilation attempt.
func (m *Metrics) ObserveCompile(state string, elapsed time.Duration) {
	m.CompileAttemptsTotal.WithLabelValues(state).Inc()
	m.CompileDuration.Observe(elapsed.Seconds())
}

// factory keeps registration one-liners readable.
type factory struct {
	registry *prometheus.Registry
}

func newFactory(r *prometheus.Registry) factory { return factory{registry: r} }

func (f factory) counterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	f.registry.MustRegister(c)
	return c
}

func (f factory) gaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(opts, labels)
	f.registry.MustRegister(g)
	return g
}

func (f factory) histogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	f.registry.MustRegister(h)
	return h
}

func (f factory) histogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	f.registry.MustRegister(h)
	return h
}
