// File: metrics/prometheus.go
//
// Prometheus-backed Collector with a private registry, exposable over HTTP
// for scraping.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Collector = (*Prometheus)(nil)

// Prometheus implements Collector on top of a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	broadcastBytes  prometheus.Counter
	droppedBytes    prometheus.Counter
	servicedTotal   prometheus.Counter
	transportErrors prometheus.Counter
	endpoints       prometheus.Gauge
}

// NewPrometheus creates a collector with all series registered.
func NewPrometheus() *Prometheus {
	const namespace = "virtwire"
	p := &Prometheus{registry: prometheus.NewRegistry()}

	p.broadcastBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_bytes_total",
		Help:      "Bytes fanned out into endpoint ring buffers.",
	})
	p.droppedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_bytes_total",
		Help:      "Bytes lost to ring buffer overflow backpressure.",
	})
	p.servicedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "serviced_endpoints_total",
		Help:      "Endpoints serviced across all propagation cycles.",
	})
	p.transportErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transport_errors_total",
		Help:      "Endpoints disconnected after a transport failure.",
	})
	p.endpoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "endpoints",
		Help:      "Endpoints currently attached to the medium.",
	})

	p.registry.MustRegister(
		p.broadcastBytes,
		p.droppedBytes,
		p.servicedTotal,
		p.transportErrors,
		p.endpoints,
	)
	return p
}

// Handler returns an HTTP handler serving the private registry.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *Prometheus) ObserveBroadcast(bytes int) { p.broadcastBytes.Add(float64(bytes)) }
func (p *Prometheus) ObserveDrop(bytes int)      { p.droppedBytes.Add(float64(bytes)) }
func (p *Prometheus) ObserveServiced(n int)      { p.servicedTotal.Add(float64(n)) }
func (p *Prometheus) ObserveTransportError()     { p.transportErrors.Inc() }
func (p *Prometheus) ObserveEndpoints(delta int) { p.endpoints.Add(float64(delta)) }
