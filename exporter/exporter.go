// Package exporter exposes the modem driver metrics as a Prometheus
// collector.
package exporter

import (
	"github.com/prometheus/client_golang/prometheus"

	walter "github.com/quickspot/go-walter"
)

type metricInfo struct {
	description *prometheus.Desc
	valueType   prometheus.ValueType
	supplier    func(snap walter.MetricsSnapshot) float64
}

// ModemCollector implements prometheus.Collector over the driver metrics of
// a single modem.
type ModemCollector struct {
	modem *walter.Modem
	infos []metricInfo
}

// NewModemCollector creates a collector with the given metric prefix.
// constLabels is meant for labels whose values are constant for the whole
// process (e.g. the board id).
func NewModemCollector(prefix string, constLabels prometheus.Labels, modem *walter.Modem) *ModemCollector {
	c := &ModemCollector{modem: modem}
	c.addMetrics(prefix, constLabels)
	return c
}

func (c *ModemCollector) addMetrics(prefix string, constLabels prometheus.Labels) {
	counter := func(name, help string, supplier func(snap walter.MetricsSnapshot) float64) {
		c.infos = append(c.infos, metricInfo{
			description: prometheus.NewDesc(prefix+name, help, nil, constLabels),
			valueType:   prometheus.CounterValue,
			supplier:    supplier,
		})
	}

	counter("commands_completed_total", "Commands that reached a final result.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.CommandsCompleted) })
	counter("commands_ok_total", "Commands that completed successfully.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.CommandsOK) })
	counter("commands_failed_total", "Commands that completed with an error result.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.CommandsFailed) })
	counter("command_retries_total", "Command retransmissions after error or timeout.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.CommandRetries) })
	counter("command_timeouts_total", "Commands that exhausted their deadline.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.CommandTimeouts) })
	counter("tx_bytes_total", "Bytes written to the UART.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.TxBytes) })
	counter("rx_frames_total", "Frames emitted by the response parser.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.RxFrames) })
	counter("rx_frame_bytes_total", "Payload bytes across all parsed frames.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.RxFrameBytes) })
	counter("urcs_total", "Frames dispatched while no command was current.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.URCs) })
	counter("queue_drops_total", "Frames dropped because the task queue was full.",
		func(s walter.MetricsSnapshot) float64 { return float64(s.QueueDrops) })
}

// Describe implements prometheus.Collector.
func (c *ModemCollector) Describe(descs chan<- *prometheus.Desc) {
	for _, info := range c.infos {
		descs <- info.description
	}
}

// Collect implements prometheus.Collector.
func (c *ModemCollector) Collect(metrics chan<- prometheus.Metric) {
	snap := c.modem.MetricsSnapshot()
	for _, info := range c.infos {
		metrics <- prometheus.MustNewConstMetric(
			info.description, info.valueType, info.supplier(snap))
	}
}

var _ prometheus.Collector = (*ModemCollector)(nil)
