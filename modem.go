// Package walter provides a host-side driver for the Sequans Monarch 2
// cellular modem as deployed on the Walter board: an LTE-M/NB-IoT + GNSS
// module behind a UART.
//
// The driver serialises commands onto the wire through a single dispatcher,
// parses the interleaved stream of solicited responses, unsolicited result
// codes and raw payloads into typed responses, and keeps a library-owned
// mirror of modem state (PDP contexts, sockets, HTTP/MQTT/CoAP sessions,
// network registration) consistent with unsolicited notifications.
package walter

import (
	"context"
	"sync"
	"time"

	"github.com/quickspot/go-walter/internal/constants"
	"github.com/quickspot/go-walter/internal/interfaces"
	"github.com/quickspot/go-walter/internal/parser"
	"github.com/quickspot/go-walter/internal/retain"
	"github.com/quickspot/go-walter/internal/uart"
)

// Logger is re-exported so applications can plug their own implementation.
type Logger = interfaces.Logger

// Port is the byte source/sink carrying the AT protocol.
type Port = interfaces.Port

// ResetLine controls the active-low modem reset pin.
type ResetLine = interfaces.ResetLine

// RetentionStore persists a small record across deep sleep.
type RetentionStore = interfaces.RetentionStore

// noHTTPProfile marks the "no profile receiving a body" state of the
// current-profile register.
const noHTTPProfile = -1

// Options configures a Modem.
type Options struct {
	// Context cancels the driver as a whole (if nil, context.Background()).
	Context context.Context

	// Port overrides the UART. When nil, Device is opened instead.
	Port Port

	// Device is the serial device path (e.g. "/dev/ttyUSB0") used when no
	// Port is given.
	Device string

	// Reset drives the modem reset pin. When nil, hardware resets are
	// skipped: no reset is sent and Begin only waits for +SYSSTART.
	Reset ResetLine

	// Retention persists MQTT subscriptions across deep sleep. Optional.
	Retention RetentionStore

	// Logger for debug/info messages (if nil, no logging).
	Logger Logger

	// Observer for metrics collection (if nil, records to the built-in
	// metrics).
	Observer Observer
}

// Modem is the driver handle. All commands funnel through one dispatcher
// task; user goroutines block on a per-command completion notifier and read
// mirror state through snapshot accessors.
type Modem struct {
	port      Port
	resetLine ResetLine
	retention RetentionStore
	logger    Logger
	observer  Observer
	metrics   *Metrics

	rxParser *parser.Parser

	taskQueue chan taskItem
	cmdQueue  chan *command

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards begun and the mirror state below. The mirror is written
	// only by the dispatcher and by table-lease operations; accessors
	// return value snapshots.
	mu    sync.RWMutex
	begun bool

	opState  OpState
	regState NetworkRegState

	simPIN         string
	networkSelMode NetworkSelMode
	operator       Operator

	pdpCtxs    [constants.MaxPDPContexts]PDPContext
	lastPDPCtx int

	sockets    [constants.MaxSockets]Socket
	lastSocket int

	httpCtxs           [constants.MaxHTTPProfiles]HTTPContext
	httpCurrentProfile int

	coapCtxs [constants.MaxCoapProfiles]CoapContext

	mqttStatus MQTTStatus
	mqttInbox  []MQTTMessage
	mqttSubs   []MQTTSubscription

	gnssWaiters []chan GNSSFix

	// handlers are application response handlers keyed by prefix, run by
	// the dispatcher for every frame.
	handlersMu sync.RWMutex
	handlers   []appHandler
}

type appHandler struct {
	prefix []byte
	fn     func(frame []byte)
}

// New creates an unstarted modem driver. Call Begin to bring it up.
func New(options *Options) *Modem {
	if options == nil {
		options = &Options{}
	}

	parent := options.Context
	if parent == nil {
		parent = context.Background()
	}

	metrics := NewMetrics()
	var observer Observer = NewMetricsObserver(metrics)
	if options.Observer != nil {
		observer = options.Observer
	}

	m := &Modem{
		port:      options.Port,
		resetLine: options.Reset,
		retention: options.Retention,
		logger:    options.Logger,
		observer:  observer,
		metrics:   metrics,
		parent:    parent,
	}

	if m.port == nil && options.Device != "" {
		m.port = uart.NewLazy(options.Device, options.Logger)
	}

	m.rxParser = parser.New(m.enqueueFrame, m.httpBodyLen)
	m.resetMirrorState()

	return m
}

// running reports whether the reader and dispatcher are live.
func (m *Modem) running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.begun && m.ctx != nil && m.ctx.Err() == nil
}

// Begin initialises the UART, spawns the reader and dispatcher tasks,
// performs a hardware reset, awaits +SYSSTART and applies the baseline
// configuration (numeric CME errors, CEREG reporting). Begin is idempotent.
func (m *Modem) Begin(ctx context.Context) error {
	m.mu.Lock()
	if m.begun {
		m.mu.Unlock()
		return nil
	}
	if m.port == nil {
		m.mu.Unlock()
		return NewError("begin", ResultError, "no port configured")
	}
	if opener, ok := m.port.(interface{ Open() error }); ok {
		if err := opener.Open(); err != nil {
			m.mu.Unlock()
			return WrapError("begin", err)
		}
	}

	m.ctx, m.cancel = context.WithCancel(m.parent)
	m.taskQueue = make(chan taskItem, constants.TaskQueueDepth)
	m.cmdQueue = make(chan *command, constants.CommandQueueDepth)
	m.rxParser.Reset()
	m.begun = true
	m.mu.Unlock()

	m.wg.Add(2)
	go m.readerLoop()
	go m.dispatcherLoop()

	if !m.Reset(ctx, nil) {
		m.shutdown()
		return NewError("begin", ResultTimeout, "modem did not report +SYSSTART")
	}
	if !m.ConfigCMEErrorReports(ctx, CMEErrorReportsNumeric, nil) {
		m.shutdown()
		return NewError("begin", ResultError, "failed to configure CME error reports")
	}
	if !m.ConfigCEREGReports(ctx, CEREGReportsEnabled, nil) {
		m.shutdown()
		return NewError("begin", ResultError, "failed to configure CEREG reports")
	}

	m.restoreRetainedState()

	if m.logger != nil {
		m.logger.Printf("modem ready")
	}
	return nil
}

// Close shuts the driver down and releases the UART.
func (m *Modem) Close() error {
	m.shutdown()
	if m.port != nil {
		return m.port.Close()
	}
	return nil
}

// shutdown stops the reader and dispatcher and unblocks every pending
// command.
func (m *Modem) shutdown() {
	m.mu.Lock()
	if !m.begun {
		m.mu.Unlock()
		return
	}
	m.begun = false
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// The reader may be parked in a blocking read; closing the port is the
	// only way to kick it loose on a real UART.
	if closer, ok := m.port.(interface{ Kick() }); ok {
		closer.Kick()
	}
	m.wg.Wait()

	// Finish stragglers that raced the dispatcher exit.
	m.abortPending(nil)
	m.metrics.Stop()
}

// Reset pulses the reset pin, zeroes all mirror state and waits for the
// modem to report +SYSSTART.
func (m *Modem) Reset(ctx context.Context, rsp *Rsp) bool {
	if m.resetLine != nil {
		if err := m.resetLine.Set(false); err != nil {
			if m.logger != nil {
				m.logger.Printf("reset line assert failed: %v", err)
			}
		}
		time.Sleep(constants.ResetPulse)
		if err := m.resetLine.Set(true); err != nil {
			if m.logger != nil {
				m.logger.Printf("reset line release failed: %v", err)
			}
		}
	}

	m.mu.Lock()
	m.resetMirrorState()
	m.mu.Unlock()

	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  "",
		expect: []string{"+SYSSTART"},
		kind:   CmdWait,
	})
}

// SoftReset sends the soft-reset AT command and waits for +SYSSTART. On
// success all mirror state is zeroed.
func (m *Modem) SoftReset(ctx context.Context, rsp *Rsp) bool {
	ok := m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  "AT^RESET",
		expect: []string{"+SYSSTART"},
		kind:   CmdTxWait,
	})
	if ok {
		m.mu.Lock()
		m.resetMirrorState()
		m.mu.Unlock()
	}
	return ok
}

// CheckComm sends a bare AT command to verify that the AT interface is
// reachable.
func (m *Modem) CheckComm(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT", "OK")
}

// RunCmd submits an AT command that completes on a response matching one of
// the expected prefixes. It returns true iff the response result is OK (or
// NoData carrying an HTTP payload). rsp may be nil when the caller does not
// care about the response payload.
func (m *Modem) RunCmd(ctx context.Context, rsp *Rsp, atCmd string, expect ...string) bool {
	if ctx != nil && ctx.Err() != nil {
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}
	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  atCmd,
		expect: expect,
		kind:   CmdTxWait,
	})
}

// RunCmdWithData submits a command with follow-up data: the command line is
// terminated with a bare LF, the payload is written after the modem's
// prompt, and completion waits for the expected prefix.
func (m *Modem) RunCmdWithData(ctx context.Context, rsp *Rsp, atCmd string, data []byte, expect ...string) bool {
	if ctx != nil && ctx.Err() != nil {
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}
	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  atCmd,
		expect: expect,
		kind:   CmdDataTxWait,
		data:   data,
	})
}

// RegisterResponseHandler registers an application handler called by the
// dispatcher for every frame starting with prefix. Handlers must not block;
// they run on the dispatcher task.
func (m *Modem) RegisterResponseHandler(prefix string, fn func(frame []byte)) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers = append(m.handlers, appHandler{prefix: []byte(prefix), fn: fn})
}

// UnregisterResponseHandler removes every handler registered for prefix.
func (m *Modem) UnregisterResponseHandler(prefix string) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	kept := m.handlers[:0]
	for _, h := range m.handlers {
		if string(h.prefix) != prefix {
			kept = append(kept, h)
		}
	}
	m.handlers = kept
}

// Sleep suspends the modem link. With lightSleep the driver stays up and
// simply blocks for the given duration. A deep sleep stops the reader and
// dispatcher, optionally persists the MQTT subscriptions to the retention
// store and releases the UART; the next Begin restores the subscriptions.
func (m *Modem) Sleep(ctx context.Context, d time.Duration, lightSleep, persistMQTTSubs bool) error {
	if lightSleep {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if m.retention != nil {
		blob := retain.Encode(persistMQTTSubs, m.mqttSubscriptionsForRetain())
		if err := m.retention.Store(blob); err != nil {
			return WrapError("sleep", err)
		}
	}

	m.shutdown()
	if m.port != nil {
		if err := m.port.Close(); err != nil {
			return WrapError("sleep", err)
		}
	}
	return nil
}

// restoreRetainedState reloads the deep-sleep retention record. Restored
// MQTT subscriptions are replayed by the connect handler on the next
// successful MQTT connect.
func (m *Modem) restoreRetainedState() {
	if m.retention == nil {
		return
	}
	blob, err := m.retention.Load()
	if err != nil || len(blob) == 0 {
		return
	}
	persisted, subs, err := retain.Decode(blob)
	if err != nil {
		if m.logger != nil {
			m.logger.Printf("invalid retention blob: %v", err)
		}
		return
	}
	if !persisted {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range subs {
		m.mqttSubs = append(m.mqttSubs, MQTTSubscription{Topic: s.Topic, QoS: int(s.QoS)})
	}
}

func (m *Modem) mqttSubscriptionsForRetain() []retain.Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	subs := make([]retain.Subscription, 0, len(m.mqttSubs))
	for _, s := range m.mqttSubs {
		subs = append(subs, retain.Subscription{Topic: s.Topic, QoS: uint8(s.QoS)})
	}
	return subs
}

// resetMirrorState zero-initialises the library-owned modem mirror. Callers
// must hold mu (or have exclusive access during construction).
func (m *Modem) resetMirrorState() {
	m.opState = OpStateMinimum
	m.regState = RegNotSearching
	m.simPIN = ""
	m.networkSelMode = NetworkSelAutomatic
	m.operator = Operator{}

	for i := range m.pdpCtxs {
		m.pdpCtxs[i] = PDPContext{
			ID:              i + 1,
			Type:            PDPTypeIP,
			IPv4AllocMethod: PDPIPv4AddrAllocDHCP,
		}
	}
	m.lastPDPCtx = 0

	for i := range m.sockets {
		m.sockets[i] = Socket{
			ID:              i + 1,
			PDPContextID:    1,
			MTU:             300,
			ExchangeTimeout: 90,
			ConnTimeout:     60,
			SendDelayMs:     5000,
			Protocol:        SocketProtoUDP,
		}
	}
	m.lastSocket = 0

	for i := range m.httpCtxs {
		m.httpCtxs[i] = HTTPContext{}
	}
	m.httpCurrentProfile = noHTTPProfile

	for i := range m.coapCtxs {
		m.coapCtxs[i] = CoapContext{}
	}

	m.mqttStatus = MQTTDisconnected
	m.mqttInbox = make([]MQTTMessage, constants.MQTTMaxPendingRings)
	for i := range m.mqttInbox {
		m.mqttInbox[i].Free = true
	}
	m.mqttSubs = nil

	for _, w := range m.gnssWaiters {
		close(w)
	}
	m.gnssWaiters = nil
}

// httpBodyLen is the parser callback that arms raw mode: it reports the
// content length of the HTTP profile currently in the got-ring state.
func (m *Modem) httpBodyLen() (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.httpCurrentProfile
	if p < 0 || p >= constants.MaxHTTPProfiles {
		return 0, false
	}
	if m.httpCtxs[p].State != HTTPContextGotRing {
		return 0, false
	}
	return m.httpCtxs[p].ContentLength, true
}

// Metrics returns the driver metrics.
func (m *Modem) Metrics() *Metrics {
	return m.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of the driver metrics.
func (m *Modem) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// NetworkRegState returns the buffered network registration state.
func (m *Modem) NetworkRegState() NetworkRegState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regState
}

// OperationalState returns the buffered operational state.
func (m *Modem) OperationalState() OpState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opState
}

// PDPContexts returns a snapshot of the PDP context mirror table.
func (m *Modem) PDPContexts() []PDPContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PDPContext, len(m.pdpCtxs))
	copy(out, m.pdpCtxs[:])
	return out
}

// Sockets returns a snapshot of the socket mirror table.
func (m *Modem) Sockets() []Socket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Socket, len(m.sockets))
	copy(out, m.sockets[:])
	return out
}

// HTTPContexts returns a snapshot of the HTTP profile mirror table.
func (m *Modem) HTTPContexts() []HTTPContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]HTTPContext, len(m.httpCtxs))
	copy(out, m.httpCtxs[:])
	return out
}

// CoapContexts returns a snapshot of the CoAP context mirror table.
func (m *Modem) CoapContexts() []CoapContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CoapContext, len(m.coapCtxs))
	for i, c := range m.coapCtxs {
		out[i] = c
		out[i].Rings = append([]CoapRing(nil), c.Rings...)
	}
	return out
}

// MQTTConnectionStatus returns the buffered MQTT connection status.
func (m *Modem) MQTTConnectionStatus() MQTTStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mqttStatus
}
