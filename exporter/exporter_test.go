package exporter

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walter "github.com/quickspot/go-walter"
)

func TestCollectorRegisters(t *testing.T) {
	m := walter.New(&walter.Options{Port: walter.NewMockPort()})
	collector := NewModemCollector("walter_modem_",
		prometheus.Labels{"board": "test"}, m)

	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(collector))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 10)
}

func TestCollectorReportsCounters(t *testing.T) {
	m := walter.New(&walter.Options{Port: walter.NewMockPort()})
	m.Metrics().RecordTX(42)
	m.Metrics().RecordFrame(7)
	m.Metrics().RecordURC()

	collector := NewModemCollector("walter_modem_", nil, m)

	assert.Equal(t, 42.0, testutil.ToFloat64(collectOne(t, collector, "walter_modem_tx_bytes_total")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectOne(t, collector, "walter_modem_rx_frames_total")))
	assert.Equal(t, 7.0, testutil.ToFloat64(collectOne(t, collector, "walter_modem_rx_frame_bytes_total")))
}

// collectOne gathers the collector and returns a single-metric collector
// for the named family so testutil.ToFloat64 can read it.
func collectOne(t *testing.T, c prometheus.Collector, name string) prometheus.Collector {
	t.Helper()

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(c))
	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() == name {
			value := family.GetMetric()[0].GetCounter().GetValue()
			gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name})
			gauge.Set(value)
			return gauge
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}
