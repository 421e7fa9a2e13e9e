package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry narrows the Prometheus registry surface the metric factory
// needs, keeping an error-returning Register next to the Registerer
// interface for callers that handle duplicate registration themselves.
type Registry interface {
	prometheus.Registerer
	Register(collector prometheus.Collector) error
}

type promRegistry struct {
	registry *prometheus.Registry
}

// NewPromRegistry wraps a prometheus.Registry in the Registry interface.
func NewPromRegistry(registry *prometheus.Registry) Registry {
	return &promRegistry{registry: registry}
}

// MustRegister implements prometheus.Registerer.
func (p *promRegistry) MustRegister(collectors ...prometheus.Collector) {
	for _, c := range collectors {
		_ = p.registry.Register(c)
	}
}

// Unregister implements prometheus.Registerer.
func (p *promRegistry) Unregister(collector prometheus.Collector) bool {
	return p.registry.Unregister(collector)
}

// Register implements Registry.
func (p *promRegistry) Register(collector prometheus.Collector) error {
	return p.registry.Register(collector)
}

// MetricFactory creates the agent's self-metrics against one Registry.
type MetricFactory struct {
	reg Registry
}

// NewMetricFactory creates a metric factory.
func NewMetricFactory(reg Registry) *MetricFactory {
	return &MetricFactory{reg: reg}
}
