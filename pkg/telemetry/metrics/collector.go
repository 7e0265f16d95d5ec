package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"velocity-hq/loadgate/pkg/config"
)

// Collector owns the Prometheus registry for the process. Components
// register their own metrics through Registerer; the collector itself adds
// runtime collectors and the HTTP request metrics.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	http *HTTPMetrics
}

// NewCollector creates a collector with the given configuration. If
// registry is nil a fresh one is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	limitsMetrics := limits.NewMetrics(collector.Registerer())
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		config:   cfg,
		registry: registry,
		http:     NewHTTPMetrics(registry),
	}
}

// Registerer returns the registry for component metrics.
func (c *Collector) Registerer() prometheus.Registerer {
	return c.registry
}

// Gatherer returns the registry for scraping and tests.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// HTTP returns the HTTP request metrics.
func (c *Collector) HTTP() *HTTPMetrics {
	return c.http
}

// Enabled reports whether the metrics endpoint should be served.
func (c *Collector) Enabled() bool {
	return c.config != nil && c.config.Enabled
}
