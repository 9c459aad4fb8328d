package walter

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// MockPort provides a scripted implementation of Port for testing. Bytes
// queued with InjectRX are handed to the reader; everything the driver
// writes is recorded and can be asserted on. This is useful both for the
// driver's own tests and for applications that want to unit test against a
// fake modem.
type MockPort struct {
	mu     sync.Mutex
	cond   *sync.Cond
	rx     []byte
	tx     []byte
	closed bool

	writeCalls int

	// OnWrite, when set, is called with each chunk the driver writes.
	// It runs on the dispatcher goroutine, so it may inject response
	// bytes but must not block.
	OnWrite func(p []byte)
}

// NewMockPort creates an empty mock port.
func NewMockPort() *MockPort {
	p := &MockPort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// InjectRX queues bytes for the reader, as if the modem had sent them.
func (p *MockPort) InjectRX(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx = append(p.rx, data...)
	p.cond.Broadcast()
}

// Read blocks until injected bytes are available or the port is closed.
func (p *MockPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.rx) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return 0, io.EOF
	}

	n := copy(buf, p.rx)
	p.rx = p.rx[n:]
	return n, nil
}

// Write records the written bytes.
func (p *MockPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	p.writeCalls++
	p.tx = append(p.tx, buf...)
	cb := p.OnWrite
	p.mu.Unlock()

	if cb != nil {
		cb(append([]byte(nil), buf...))
	}
	return len(buf), nil
}

// Close unblocks any pending reader.
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}

// Kick unblocks a reader parked in Read without marking new data.
func (p *MockPort) Kick() {
	_ = p.Close()
}

// Open resets a closed mock port so Begin can be called again.
func (p *MockPort) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = false
	return nil
}

// TX returns everything written so far.
func (p *MockPort) TX() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.tx...)
}

// ClearTX discards the recorded writes.
func (p *MockPort) ClearTX() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tx = nil
}

// WriteCalls returns the number of Write invocations.
func (p *MockPort) WriteCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeCalls
}

// WaitForTX polls until the recorded writes contain want or the timeout
// expires, returning whether it was seen.
func (p *MockPort) WaitForTX(want string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if bytes.Contains(p.TX(), []byte(want)) {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return bytes.Contains(p.TX(), []byte(want))
}

// MockResetLine records reset pulses for testing.
type MockResetLine struct {
	mu     sync.Mutex
	level  bool
	pulses int
}

// NewMockResetLine creates a reset line held high.
func NewMockResetLine() *MockResetLine {
	return &MockResetLine{level: true}
}

// Set implements ResetLine.
func (r *MockResetLine) Set(high bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.level && !high {
		r.pulses++
	}
	r.level = high
	return nil
}

// Pulses returns how many times the line was asserted low.
func (r *MockResetLine) Pulses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pulses
}

// MockRetentionStore keeps the retention blob in memory.
type MockRetentionStore struct {
	mu   sync.Mutex
	blob []byte
}

// Store implements RetentionStore.
func (s *MockRetentionStore) Store(blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = append([]byte(nil), blob...)
	return nil
}

// Load implements RetentionStore.
func (s *MockRetentionStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.blob...), nil
}

// Compile-time interface checks
var (
	_ Port           = (*MockPort)(nil)
	_ ResetLine      = (*MockResetLine)(nil)
	_ RetentionStore = (*MockRetentionStore)(nil)
)
