package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitanogama/ocpp-manager/connection"
)

func TestRegistryGathersRuntimeCollectors(t *testing.T) {
	registry := NewRegistry("test")

	families, err := registry.Gatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRegistererAcceptsCustomMetrics(t *testing.T) {
	registry := NewRegistry("test")

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ocpp",
		Name:      "test_total",
		Help:      "test counter",
	})
	require.NoError(t, registry.Registerer().Register(counter))
	counter.Inc()

	families, err := registry.Gatherer().Gather()
	require.NoError(t, err)

	found := false
	for _, family := range families {
		if family.GetName() == "ocpp_test_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTrackConnections(t *testing.T) {
	registry := NewRegistry("test")
	connections := connection.NewRegistry(nil)
	registry.TrackConnections(connections)

	families, err := registry.Gatherer().Gather()
	require.NoError(t, err)

	var value float64 = -1
	for _, family := range families {
		if family.GetName() == "ocpp_gateway_connections" {
			value = family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Zero(t, value)
}
