// Package telemetry instruments the Receiver's own operation: samples
// dispatched, batches drained and dropped, windows rotated, scrape
// requests served, all as a private Prometheus registry, following the same
// NewCounter(subsystem, name, labels, help) / GetRegistry().Gather() shape
// exercised by the teacher's own comp/core/telemetry component tests.
//
// This is deliberately separate from the user-facing scrape endpoint in
// package scrape: that endpoint renders the *rendered channel statistics*
// in a plain line/JSON format; this package renders the *health of the
// aggregation core itself* in standard Prometheus exposition format, on
// its own path.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry is the Receiver's self-instrumentation surface.
type Telemetry struct {
	registry *prometheus.Registry

	SamplesDispatched prometheus.Counter
	BatchesDrained    prometheus.Counter
	BatchesDropped    prometheus.Counter
	WindowsRendered   prometheus.Counter
	ScrapesServed     prometheus.Counter
	QueueDepth        prometheus.Gauge
}

// New builds a Telemetry surface registered on a fresh, private registry,
// never the global default registerer, so multiple Receivers in one
// process never collide.
func New(namespace string) *Telemetry {
	reg := prometheus.NewRegistry()
	t := &Telemetry{
		registry: reg,
		SamplesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "samples_dispatched_total",
			Help:      "Samples dispatched into stat stores since start.",
		}),
		BatchesDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "batches_drained_total",
			Help:      "Filled batches drained from the data queue since start.",
		}),
		BatchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "batches_dropped_total",
			Help:      "Batches or control messages a producer could not enqueue because the filled or control queue was full.",
		}),
		WindowsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "windows_rendered_total",
			Help:      "Window boundaries crossed and rendered into meters.",
		}),
		ScrapesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "requests_served_total",
			Help:      "HTTP scrape requests served inline by the receiver loop.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "filled_queue_depth",
			Help:      "Approximate number of filled batches waiting to be drained.",
		}),
	}
	reg.MustRegister(
		t.SamplesDispatched,
		t.BatchesDrained,
		t.BatchesDropped,
		t.WindowsRendered,
		t.ScrapesServed,
		t.QueueDepth,
	)
	return t
}

// GetRegistry exposes the private registry, e.g. for Gather() in tests.
func (t *Telemetry) GetRegistry() *prometheus.Registry {
	return t.registry
}

// Handler returns an http.Handler serving this Telemetry's registry in
// standard Prometheus exposition format.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
