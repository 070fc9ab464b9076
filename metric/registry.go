// Package metric owns the process-wide Prometheus registry: runtime
// collectors, the connected charge point gauge, and the registration
// surface the protocol engine hangs its own metrics on.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gitanogama/ocpp-manager/connection"
)

// Registry wraps a dedicated Prometheus registry so the service never
// shares state with the global default registry.
type Registry struct {
	namespace string
	registry  *prometheus.Registry
}

// NewRegistry creates a registry preloaded with Go runtime and process
// collectors.
func NewRegistry(namespace string) *Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{namespace: namespace, registry: registry}
}

// Registerer exposes the registration side for collaborators that
// create their own metrics.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the scrape side for the /metrics endpoint.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// TrackConnections registers a gauge reporting the number of currently
// registered charge point connections.
func (r *Registry) TrackConnections(connections *connection.Registry) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ocpp",
		Subsystem: "gateway",
		Name:      "connections",
		Help:      "Charge point connections currently registered.",
	}, func() float64 {
		return float64(connections.Len())
	}))
}
