package walter

import (
	"bytes"
	"strconv"
	"strings"
)

// processFrame runs a parsed frame through the core response handlers, then
// the application handlers, and finally evaluates it against the current
// command's expected-prefix rule.
func (m *Modem) processFrame(cur *command, frame []byte) {
	if cur == nil {
		m.observer.ObserveURC()
	}

	result, proceed := m.coreDispatch(cur, frame)

	m.runAppHandlers(frame)

	if !proceed {
		return
	}
	if cur == nil || len(cur.expect) == 0 || cur.kind == CmdTx {
		return
	}
	for _, exp := range cur.expect {
		if bytes.HasPrefix(frame, exp) {
			m.finishCmd(cur, result)
			return
		}
	}
}

// runAppHandlers invokes externally registered handlers whose prefix
// matches the frame.
func (m *Modem) runAppHandlers(frame []byte) {
	m.handlersMu.RLock()
	defer m.handlersMu.RUnlock()
	for _, h := range m.handlers {
		if bytes.HasPrefix(frame, h.prefix) {
			h.fn(frame)
		}
	}
}

// coreDispatch updates mirror state and the current command's response
// object for every response the core recognises. It returns the result the
// command completes with if the frame matches its expected prefix, and
// whether that match should be evaluated at all: a bare ERROR or a CME
// error puts the command in the retry state instead of completing it.
func (m *Modem) coreDispatch(cur *command, frame []byte) (Result, bool) {
	result := ResultOK

	switch {
	case hasPrefix(frame, "+CEREG: "):
		m.handleCEREG(cur, frame)

	case len(frame) > 0 && frame[0] == '>':
		// Interactive data prompt: send the follow-up payload.
		if cur != nil && cur.data != nil && cur.kind == CmdDataTxWait {
			if m.logger != nil {
				m.logger.Debugf("TX data: %d bytes", len(cur.data))
			}
			m.write(cur.data)
		}

	case hasPrefix(frame, "ERROR"):
		if cur != nil {
			cur.rsp.Kind = RspNoData
			cur.state = cmdRetryAfterError
		}
		return result, false

	case hasPrefix(frame, "+CME ERROR: "):
		if cur != nil {
			cur.rsp.Kind = RspCMEError
			cur.rsp.CMEError = CMEError(parseInt(firstField(after(frame, "+CME ERROR: "))))
			cur.state = cmdRetryAfterError
		}
		return result, false

	case hasPrefix(frame, "+CFUN: "):
		m.handleCFUN(cur, frame)

	case hasPrefix(frame, "+SQNMODEACTIVE: "):
		m.handleModeActive(cur, frame)

	case hasPrefix(frame, "+SQNBANDSEL: "):
		m.handleBandSel(cur, frame)

	case hasPrefix(frame, "+CPIN: "):
		m.handleCPIN(cur, frame)

	case hasPrefix(frame, "+CGPADDR: "):
		m.handleCGPAddr(cur, frame)

	case hasPrefix(frame, "+CSQ: "):
		m.handleCSQ(cur, frame)

	case hasPrefix(frame, "+CESQ: "):
		m.handleCESQ(cur, frame)

	case hasPrefix(frame, "+CCLK: "):
		m.handleCCLK(cur, frame)

	case hasPrefix(frame, "<<<"):
		result = m.handleHTTPBody(cur, frame)

	case hasPrefix(frame, "+SQNHTTPRING: "):
		m.handleHTTPRing(frame)

	case hasPrefix(frame, "+SQNHTTPCONNECT: "):
		m.handleHTTPConnect(frame)

	case hasPrefix(frame, "+SQNHTTPDISCONNECT: "):
		m.handleHTTPDisconnect(frame)

	case hasPrefix(frame, "+SQNHTTPSH: "):
		m.handleHTTPSH(frame)

	case hasPrefix(frame, "+SQNSH: "):
		m.handleSocketClosed(frame)

	case hasPrefix(frame, "+SQNSCFG: "):
		m.handleSocketConfig(frame)

	case hasPrefix(frame, "+LPGNSSFIXREADY: "):
		m.handleGNSSFixReady(frame)

	case hasPrefix(frame, "+LPGNSSASSISTANCE: "):
		m.handleGNSSAssistance(cur, frame)

	case hasPrefix(frame, "+SQNMONI"):
		m.handleCellInfo(cur, frame)

	case hasPrefix(frame, "+SQNSMQTTONCONNECT:0,"):
		result = m.handleMQTTOnConnect(cur, frame)

	case hasPrefix(frame, "+SQNSMQTTONPUBLISH:0"):
		result = m.handleMQTTOnPublish(cur, frame)

	case hasPrefix(frame, "+SQNSMQTTONDISCONNECT:0,"):
		result = m.handleMQTTOnDisconnect(cur, frame)

	case hasPrefix(frame, "+SQNSMQTTONMESSAGE:0,"):
		m.handleMQTTOnMessage(frame)

	case hasPrefix(frame, "+SQNSMQTTMEMORYFULL"):
		m.handleMQTTMemoryFull()

	case hasPrefix(frame, "+SQNSMQTTONSUBSCRIBE:0"):
		result = m.handleMQTTOnSubscribe(cur, frame)

	case hasPrefix(frame, "+SQNCOAPCLOSED: "):
		m.handleCoapClosed(frame)

	case hasPrefix(frame, "+SQNCOAPCONNECTED: "):
		m.handleCoapConnected(frame)

	case hasPrefix(frame, "+SQNCOAP: ERROR"):
		result = ResultError

	case hasPrefix(frame, "+SQNCOAPRING: "):
		m.handleCoapRing(frame)

	case hasPrefix(frame, "+SQNCOAPRCV: "):
		m.handleCoapRcv(cur, frame)

	case hasPrefix(frame, "+SQNCOAPOPT: "):
		m.handleCoapOpt(cur, frame)

	case hasPrefix(frame, "+SQNCOAPRCVO: "):
		m.handleCoapRcvo(cur, frame)

	default:
		// Payload lines of a ring fetch accumulate in the command's ring
		// return container.
		if cur != nil && cur.ringReturn != nil &&
			!bytes.Equal(frame, []byte("OK")) &&
			!bytes.Equal(frame, []byte("ERROR")) {
			cur.rsp.Kind = RspMQTT
			*cur.ringReturn = append(*cur.ringReturn, string(frame))
		}
	}

	return result, true
}

// Parsing helpers shared by the response handlers. The modem is trusted the
// same way the original firmware driver trusts it: malformed numbers parse
// as zero rather than aborting the dispatcher.

func hasPrefix(frame []byte, prefix string) bool {
	return len(frame) >= len(prefix) && string(frame[:len(prefix)]) == prefix
}

func after(frame []byte, prefix string) []byte {
	return frame[len(prefix):]
}

func parseInt(b []byte) int {
	n, _ := strconv.Atoi(strings.TrimSpace(string(b)))
	return n
}

func parseFloat(b []byte) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	return f
}

// firstField returns the bytes before the first comma.
func firstField(b []byte) []byte {
	if i := bytes.IndexByte(b, ','); i >= 0 {
		return b[:i]
	}
	return b
}

func parseHex(s string) (int, error) {
	n, err := strconv.ParseInt(s, 16, 64)
	return int(n), err
}

func unquote(s string) string {
	return strings.Trim(s, `"`)
}

// modemString renders a string argument of an AT command: quoted, or empty
// when absent.
func modemString(s string) string {
	if s == "" {
		return ""
	}
	return `"` + s + `"`
}

// modemBool renders a boolean argument of an AT command.
func modemBool(b bool) int {
	if b {
		return 1
	}
	return 0
}
