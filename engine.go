package walter

import (
	"time"

	"github.com/rs/xid"

	"github.com/quickspot/go-walter/internal/constants"
	"github.com/quickspot/go-walter/internal/logging"
)

// cmdState is the per-command FSM state.
type cmdState int

const (
	cmdNew cmdState = iota
	cmdPending
	cmdRetryAfterError
	cmdComplete
)

// completeHandler runs inside the dispatcher right before a command's
// waiter is released. It is used to manage internal library state such as
// promoting a reserved table entry.
type completeHandler func(result Result, rsp *Rsp)

// command is an AT command descriptor plus its progress block. It lives on
// the command queue until it becomes the current command, then on the wire
// until its terminal response, retry exhaustion or timeout.
type command struct {
	id          xid.ID
	kind        CmdKind
	atCmd       []byte
	data        []byte
	expect      [][]byte
	maxAttempts int

	rsp        *Rsp
	ringReturn *[]string
	onComplete completeHandler

	state        cmdState
	attempt      int
	attemptStart time.Time
	submitted    time.Time
	done         chan struct{}
}

// cmdRequest is the builder consumed by submit.
type cmdRequest struct {
	rsp         *Rsp
	atCmd       string
	expect      []string
	kind        CmdKind
	data        []byte
	maxAttempts int
	onComplete  completeHandler
	ringReturn  *[]string
}

// taskItem is one entry of the task queue: either a newly submitted command
// or a parsed response frame, in arrival order.
type taskItem struct {
	cmd   *command
	frame []byte
}

// submit enqueues a command and blocks until it completes. It returns true
// iff the final result is OK, or NoData carrying an HTTP response payload.
// In-flight commands are not cancelable; they always complete within the
// retry budget or on driver shutdown.
func (m *Modem) submit(req cmdRequest) bool {
	rsp := req.rsp
	if rsp == nil {
		rsp = &Rsp{}
	}

	maxAttempts := req.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = constants.DefaultCmdAttempts
	}

	expect := make([][]byte, 0, len(req.expect))
	for _, e := range req.expect {
		if e != "" {
			expect = append(expect, []byte(e))
		}
	}

	c := &command{
		id:          xid.New(),
		kind:        req.kind,
		atCmd:       []byte(req.atCmd),
		data:        req.data,
		expect:      expect,
		maxAttempts: maxAttempts,
		rsp:         rsp,
		ringReturn:  req.ringReturn,
		onComplete:  req.onComplete,
		state:       cmdNew,
		done:        make(chan struct{}),
		submitted:   time.Now(),
	}

	if !m.running() {
		rsp.Result = ResultError
		return false
	}

	select {
	case m.taskQueue <- taskItem{cmd: c}:
	default:
		rsp.Result = ResultNoMemory
		return false
	}

	select {
	case <-c.done:
	case <-m.ctx.Done():
		// The dispatcher finishes every pending command before exiting.
		<-c.done
	}

	return rsp.Result == ResultOK ||
		(rsp.Kind == RspHTTP && rsp.Result == ResultNoData)
}

// readerLoop moves bytes from the port into the parser. Parsed frames are
// delivered to the task queue by the parser callback.
func (m *Modem) readerLoop() {
	defer m.wg.Done()

	buf := make([]byte, constants.ReadBufferSize)
	for {
		n, err := m.port.Read(buf)
		if n > 0 {
			if m.logger != nil {
				m.logger.Debugf("RX: %q", logging.DumpBytes(buf[:n]))
			}
			m.rxParser.Feed(buf[:n])
		}
		if err != nil {
			select {
			case <-m.ctx.Done():
			default:
				if m.logger != nil {
					m.logger.Printf("UART read failed: %v", err)
				}
			}
			return
		}
	}
}

// enqueueFrame hands a parsed frame to the task queue. Frames that arrive
// while the queue is full are dropped.
func (m *Modem) enqueueFrame(frame []byte) {
	m.observer.ObserveFrame(uint64(len(frame)))

	select {
	case m.taskQueue <- taskItem{frame: frame}:
	default:
		m.observer.ObserveQueueDrop()
		if m.logger != nil {
			m.logger.Printf("task queue full, dropping frame %q", logging.DumpBytes(frame))
		}
	}
}

// dispatcherLoop is the sole consumer of the task queue. It owns the
// current-command slot, the TX side of the UART and the mirror state.
func (m *Modem) dispatcherLoop() {
	defer m.wg.Done()

	var cur *command
	for {
		var it taskItem

		if cur == nil {
			// Dequeue a waiting command first so command submission
			// stays fair with respect to incoming frames.
			select {
			case c := <-m.cmdQueue:
				it = taskItem{cmd: c}
			default:
				select {
				case it = <-m.taskQueue:
				case c := <-m.cmdQueue:
					it = taskItem{cmd: c}
				case <-m.ctx.Done():
					m.abortPending(cur)
					return
				}
			}
		} else {
			// A command is on the wire: wake up on the next frame or
			// when its attempt deadline passes.
			timer := time.NewTimer(m.attemptDeadline(cur))
			select {
			case it = <-m.taskQueue:
			case <-timer.C:
			case <-m.ctx.Done():
				timer.Stop()
				m.abortPending(cur)
				return
			}
			timer.Stop()
		}

		if it.cmd != nil {
			if cur == nil {
				cur = it.cmd
			} else {
				select {
				case m.cmdQueue <- it.cmd:
				default:
					m.finishCmd(it.cmd, ResultNoMemory)
				}
			}
		} else if it.frame != nil {
			m.processFrame(cur, it.frame)
		}

		if cur != nil {
			m.driveCmd(cur)
			if cur.state == cmdComplete {
				cur = nil
			}
		}
	}
}

// attemptDeadline returns how long the dispatcher may sleep before the
// current command needs FSM attention.
func (m *Modem) attemptDeadline(c *command) time.Duration {
	if c.state == cmdNew || c.state == cmdRetryAfterError {
		return 0
	}
	d := time.Until(c.attemptStart.Add(constants.CmdTimeout))
	if d < 0 {
		d = 0
	}
	return d
}

// abortPending finishes the current command and everything still queued so
// no caller stays blocked across shutdown.
func (m *Modem) abortPending(cur *command) {
	if cur != nil {
		m.finishCmd(cur, ResultError)
	}
	for {
		select {
		case it := <-m.taskQueue:
			if it.cmd != nil {
				m.finishCmd(it.cmd, ResultError)
			}
		case c := <-m.cmdQueue:
			m.finishCmd(c, ResultError)
		default:
			return
		}
	}
}

// driveCmd advances the current command FSM: initial transmission, retries
// after error, per-attempt timeouts and completion.
func (m *Modem) driveCmd(c *command) {
	switch c.kind {
	case CmdTx:
		if c.state == cmdNew {
			m.transmit(c)
			c.attempt = 1
			m.finishCmd(c, ResultOK)
		}

	case CmdTxWait, CmdDataTxWait:
		switch c.state {
		case cmdNew:
			m.transmit(c)
			c.attempt = 1
			c.attemptStart = time.Now()
			c.state = cmdPending

		case cmdPending, cmdRetryAfterError:
			timedOut := time.Since(c.attemptStart) >= constants.CmdTimeout
			if !timedOut && c.state != cmdRetryAfterError {
				return
			}
			if c.attempt >= c.maxAttempts {
				if timedOut {
					m.observer.ObserveTimeout()
					m.finishCmd(c, ResultTimeout)
				} else {
					m.finishCmd(c, ResultError)
				}
			} else {
				m.observer.ObserveRetry()
				m.transmit(c)
				c.attempt++
				c.attemptStart = time.Now()
				c.state = cmdPending
			}
		}

	case CmdWait:
		if c.state == cmdNew {
			c.attempt = 1
			c.attemptStart = time.Now()
			c.state = cmdPending
		} else if c.state == cmdPending &&
			time.Since(c.attemptStart) >= constants.CmdTimeout {
			m.observer.ObserveTimeout()
			m.finishCmd(c, ResultTimeout)
		}
	}
}

// transmit writes the AT command bytes. Normal commands are terminated with
// CRLF; commands with follow-up data use a bare LF and send their payload
// only after the modem's prompt.
func (m *Modem) transmit(c *command) {
	if len(c.atCmd) == 0 {
		return
	}
	if m.logger != nil {
		m.logger.Debugf("TX[%s]: %q", c.id, c.atCmd)
	}
	m.write(c.atCmd)
	if c.kind == CmdDataTxWait {
		m.write([]byte{'\n'})
	} else {
		m.write([]byte("\r\n"))
	}
}

// write pushes bytes to the UART from the dispatcher goroutine.
func (m *Modem) write(p []byte) {
	if _, err := m.port.Write(p); err != nil {
		if m.logger != nil {
			m.logger.Printf("UART write failed: %v", err)
		}
		return
	}
	m.observer.ObserveTX(uint64(len(p)))
}

// finishCmd moves a command to its terminal state and releases its waiter.
// A command completes exactly once.
func (m *Modem) finishCmd(c *command, result Result) {
	if c.state == cmdComplete {
		return
	}
	c.rsp.Result = result

	if c.onComplete != nil {
		c.onComplete(result, c.rsp)
	}

	c.state = cmdComplete
	close(c.done)

	ok := result == ResultOK ||
		(c.rsp.Kind == RspHTTP && result == ResultNoData)
	m.observer.ObserveCommand(
		uint64(time.Since(c.submitted).Nanoseconds()),
		uint32(c.attempt), ok)
	if m.logger != nil {
		m.logger.Debugf("command %s finished: %s", c.id, result)
	}
}
