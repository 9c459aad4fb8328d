package walter

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the command latency histogram buckets in
// nanoseconds, from 1ms to the retry-exhausted worst case.
var LatencyBuckets = []uint64{
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	5_000_000_000,  // 5s
	15_000_000_000, // 15s
}

const numLatencyBuckets = 6

// Metrics tracks operational statistics for the modem driver.
type Metrics struct {
	// Command counters
	CommandsCompleted atomic.Uint64 // Commands that reached a final result
	CommandsOK        atomic.Uint64 // Commands that completed successfully
	CommandsFailed    atomic.Uint64 // Commands that completed with an error result
	CommandRetries    atomic.Uint64 // Retransmissions after error or timeout
	CommandTimeouts   atomic.Uint64 // Commands that exhausted their deadline

	// Wire counters
	TxBytes      atomic.Uint64 // Bytes written to the UART
	RxFrames     atomic.Uint64 // Frames emitted by the parser
	RxFrameBytes atomic.Uint64 // Payload bytes across all frames
	URCs         atomic.Uint64 // Frames dispatched while no command was current
	QueueDrops   atomic.Uint64 // Frames dropped because the task queue was full

	// Performance tracking
	TotalLatencyNs atomic.Uint64 // Cumulative command latency in nanoseconds
	AttemptsTotal  atomic.Uint64 // Cumulative attempt count over completed commands

	// Latency histogram buckets (cumulative counts)
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Driver lifecycle
	StartTime atomic.Int64 // Begin timestamp (UnixNano)
	StopTime  atomic.Int64 // Shutdown timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordCommand records a completed command.
func (m *Metrics) RecordCommand(latencyNs uint64, attempts uint32, ok bool) {
	m.CommandsCompleted.Add(1)
	if ok {
		m.CommandsOK.Add(1)
	} else {
		m.CommandsFailed.Add(1)
	}
	m.AttemptsTotal.Add(uint64(attempts))
	m.TotalLatencyNs.Add(latencyNs)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// RecordRetry records a retransmission.
func (m *Metrics) RecordRetry() {
	m.CommandRetries.Add(1)
}

// RecordTimeout records a command that exhausted its deadline.
func (m *Metrics) RecordTimeout() {
	m.CommandTimeouts.Add(1)
}

// RecordTX records bytes written to the UART.
func (m *Metrics) RecordTX(bytes uint64) {
	m.TxBytes.Add(bytes)
}

// RecordFrame records a parsed frame.
func (m *Metrics) RecordFrame(bytes uint64) {
	m.RxFrames.Add(1)
	m.RxFrameBytes.Add(bytes)
}

// RecordURC records a frame dispatched while no command was current.
func (m *Metrics) RecordURC() {
	m.URCs.Add(1)
}

// RecordQueueDrop records a frame dropped on a full task queue.
func (m *Metrics) RecordQueueDrop() {
	m.QueueDrops.Add(1)
}

// Stop marks the driver as stopped
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	CommandsCompleted uint64
	CommandsOK        uint64
	CommandsFailed    uint64
	CommandRetries    uint64
	CommandTimeouts   uint64

	TxBytes      uint64
	RxFrames     uint64
	RxFrameBytes uint64
	URCs         uint64
	QueueDrops   uint64

	AvgLatencyNs uint64
	AvgAttempts  float64
	UptimeNs     uint64

	LatencyHistogram [numLatencyBuckets]uint64
}

// Snapshot creates a point-in-time snapshot of metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		CommandsCompleted: m.CommandsCompleted.Load(),
		CommandsOK:        m.CommandsOK.Load(),
		CommandsFailed:    m.CommandsFailed.Load(),
		CommandRetries:    m.CommandRetries.Load(),
		CommandTimeouts:   m.CommandTimeouts.Load(),
		TxBytes:           m.TxBytes.Load(),
		RxFrames:          m.RxFrames.Load(),
		RxFrameBytes:      m.RxFrameBytes.Load(),
		URCs:              m.URCs.Load(),
		QueueDrops:        m.QueueDrops.Load(),
	}

	if snap.CommandsCompleted > 0 {
		snap.AvgLatencyNs = m.TotalLatencyNs.Load() / snap.CommandsCompleted
		snap.AvgAttempts = float64(m.AttemptsTotal.Load()) / float64(snap.CommandsCompleted)
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	return snap
}

// Reset resets all metrics counters (useful for testing)
func (m *Metrics) Reset() {
	m.CommandsCompleted.Store(0)
	m.CommandsOK.Store(0)
	m.CommandsFailed.Store(0)
	m.CommandRetries.Store(0)
	m.CommandTimeouts.Store(0)
	m.TxBytes.Store(0)
	m.RxFrames.Store(0)
	m.RxFrameBytes.Store(0)
	m.URCs.Store(0)
	m.QueueDrops.Store(0)
	m.TotalLatencyNs.Store(0)
	m.AttemptsTotal.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection.
// Implementations must be thread-safe as methods are called from the
// reader and dispatcher loops.
type Observer interface {
	ObserveTX(bytes uint64)
	ObserveFrame(bytes uint64)
	ObserveURC()
	ObserveCommand(latencyNs uint64, attempts uint32, ok bool)
	ObserveRetry()
	ObserveTimeout()
	ObserveQueueDrop()
}

// NoOpObserver is a no-op implementation of Observer
type NoOpObserver struct{}

func (NoOpObserver) ObserveTX(uint64)                  {}
func (NoOpObserver) ObserveFrame(uint64)               {}
func (NoOpObserver) ObserveURC()                       {}
func (NoOpObserver) ObserveCommand(uint64, uint32, bool) {}
func (NoOpObserver) ObserveRetry()                     {}
func (NoOpObserver) ObserveTimeout()                   {}
func (NoOpObserver) ObserveQueueDrop()                 {}

// MetricsObserver implements Observer using the built-in Metrics
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveTX(bytes uint64)    { o.metrics.RecordTX(bytes) }
func (o *MetricsObserver) ObserveFrame(bytes uint64) { o.metrics.RecordFrame(bytes) }
func (o *MetricsObserver) ObserveURC()               { o.metrics.RecordURC() }
func (o *MetricsObserver) ObserveCommand(latencyNs uint64, attempts uint32, ok bool) {
	o.metrics.RecordCommand(latencyNs, attempts, ok)
}
func (o *MetricsObserver) ObserveRetry()     { o.metrics.RecordRetry() }
func (o *MetricsObserver) ObserveTimeout()   { o.metrics.RecordTimeout() }
func (o *MetricsObserver) ObserveQueueDrop() { o.metrics.RecordQueueDrop() }

// Compile-time interface check
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
