package walter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordCommand(t *testing.T) {
	m := NewMetrics()

	m.RecordCommand(2_000_000, 1, true)
	m.RecordCommand(20_000_000, 3, false)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.CommandsCompleted)
	assert.Equal(t, uint64(1), snap.CommandsOK)
	assert.Equal(t, uint64(1), snap.CommandsFailed)
	assert.Equal(t, uint64(11_000_000), snap.AvgLatencyNs)
	assert.Equal(t, 2.0, snap.AvgAttempts)

	// 2ms falls in the 10ms bucket and above; 20ms only from 100ms up.
	assert.Equal(t, uint64(0), snap.LatencyHistogram[0])
	assert.Equal(t, uint64(1), snap.LatencyHistogram[1])
	assert.Equal(t, uint64(2), snap.LatencyHistogram[2])
}

func TestMetricsWireCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordTX(10)
	m.RecordTX(5)
	m.RecordFrame(4)
	m.RecordURC()
	m.RecordRetry()
	m.RecordTimeout()
	m.RecordQueueDrop()

	snap := m.Snapshot()
	assert.Equal(t, uint64(15), snap.TxBytes)
	assert.Equal(t, uint64(1), snap.RxFrames)
	assert.Equal(t, uint64(4), snap.RxFrameBytes)
	assert.Equal(t, uint64(1), snap.URCs)
	assert.Equal(t, uint64(1), snap.CommandRetries)
	assert.Equal(t, uint64(1), snap.CommandTimeouts)
	assert.Equal(t, uint64(1), snap.QueueDrops)
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordCommand(1000, 1, true)
	m.RecordTX(100)

	m.Reset()

	snap := m.Snapshot()
	assert.Equal(t, uint64(0), snap.CommandsCompleted)
	assert.Equal(t, uint64(0), snap.TxBytes)
	assert.Equal(t, uint64(0), snap.LatencyHistogram[0])
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	assert.Greater(t, snap.UptimeNs, uint64(0))

	m.Stop()
	stopped := m.Snapshot().UptimeNs
	assert.Equal(t, stopped, m.Snapshot().UptimeNs,
		"uptime freezes once stopped")
}

func TestObserverPlumbing(t *testing.T) {
	metrics := NewMetrics()
	var obs Observer = NewMetricsObserver(metrics)

	obs.ObserveTX(3)
	obs.ObserveFrame(2)
	obs.ObserveURC()
	obs.ObserveCommand(1000, 1, true)
	obs.ObserveRetry()
	obs.ObserveTimeout()
	obs.ObserveQueueDrop()

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(3), snap.TxBytes)
	assert.Equal(t, uint64(1), snap.RxFrames)
	assert.Equal(t, uint64(1), snap.URCs)
	assert.Equal(t, uint64(1), snap.CommandsCompleted)
	assert.Equal(t, uint64(1), snap.CommandRetries)
	assert.Equal(t, uint64(1), snap.CommandTimeouts)
	assert.Equal(t, uint64(1), snap.QueueDrops)

	// NoOpObserver must accept the same calls without effect.
	var noop Observer = NoOpObserver{}
	noop.ObserveTX(1)
	noop.ObserveCommand(1, 1, false)
}
