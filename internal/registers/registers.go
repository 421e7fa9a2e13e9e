// Package registers assembles the agent's Prometheus registry: a clean
// registry without Go runtime noise, the optional process collector and
// every pipeline metric.
package registers

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/syncflux-collector/internal/metrics"
)

// InitPromRegistry builds the registry and the shared metrics bundle the
// pipeline components report into.
func InitPromRegistry(enableProcess bool) (*prometheus.Registry, *metrics.AgentMetrics) {
	promRegistry := prometheus.NewRegistry()
	if enableProcess {
		promRegistry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}

	factory := metrics.NewMetricFactory(metrics.NewPromRegistry(promRegistry))
	return promRegistry, metrics.NewAgentMetrics(factory)
}
