package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusConfig configures the Prometheus exporter.
type PrometheusConfig struct {
	// Namespace is an optional prefix applied to the process collector's
	// metrics; the Go runtime collector's metric names are not prefixed.
	Namespace string
	// EnableRuntime controls whether Go runtime metrics (goroutines,
	// memory, GC) and process metrics are registered.
	EnableRuntime bool
	// Path is the HTTP path to serve metrics on (default "/metrics").
	Path string
}

// DefaultPrometheusConfig returns a config with sensible defaults.
func DefaultPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		Namespace:     "availnode",
		EnableRuntime: true,
		Path:          "/metrics",
	}
}

// PrometheusExporter serves a Registry's metrics over HTTP in Prometheus
// text exposition format via promhttp.
type PrometheusExporter struct {
	config   PrometheusConfig
	registry *Registry
}

// NewPrometheusExporter creates a new exporter that reads from the given
// registry. When config.EnableRuntime is set, Go runtime and process
// collectors are registered into the registry's prometheus.Registry.
func NewPrometheusExporter(registry *Registry, config PrometheusConfig) *PrometheusExporter {
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if config.EnableRuntime {
		registry.prom.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: config.Namespace}),
		)
	}
	return &PrometheusExporter{
		config:   config,
		registry: registry,
	}
}

// Handler returns an http.Handler that serves the configured path using
// promhttp against the registry's prometheus.Registry.
func (pe *PrometheusExporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(pe.config.Path, promhttp.HandlerFor(pe.registry.prom, promhttp.HandlerOpts{}))
	return mux
}

// RegisterCollector registers an arbitrary prometheus.Collector into the
// exporter's registry, for metrics sources that don't go through
// Counter/Gauge/Histogram (e.g. a third-party client's own collector).
func (pe *PrometheusExporter) RegisterCollector(c prometheus.Collector) error {
	return pe.registry.prom.Register(c)
}
