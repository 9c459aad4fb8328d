package walter

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/quickspot/go-walter/internal/constants"
)

// CoAP over the modem's embedded client. A context must be created before
// options can be set or messages exchanged; incoming data is announced by a
// +SQNCOAPRING URC queued on the mirrored context.

const (
	coapMaxMsgID       = 65535
	coapMinTimeout     = 1
	coapMaxTimeout     = 120
	coapMaxPayload     = 1024
	coapMaxRecvOptions = 32
	coapMaxTokenLen    = 16
)

// coapRepeatableOptions are the options that accept up to six values.
var coapRepeatableOptions = map[int]bool{
	1:  true, // If-Match
	4:  true, // ETag
	8:  true, // Location-Path
	11: true, // Uri-Path
	15: true, // Uri-Query
	20: true, // Location-Query
}

func validCoapCtx(ctxID int) bool {
	return ctxID >= 0 && ctxID < constants.MaxCoapProfiles
}

// CoapContextCreate creates a CoAP context. With a server address and port
// a connection attempt is made; with only a local port the context listens
// for an incoming connection. Completion waits for the connection URC or
// the CoAP error line.
func (m *Modem) CoapContextCreate(ctx context.Context, ctxID int, serverAddress string, serverPort, localPort int, dtls bool, timeout, secureProfileID int, rsp *Rsp) bool {
	if !validCoapCtx(ctxID) {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	if timeout < coapMinTimeout || timeout > coapMaxTimeout {
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}

	serverPortField := ""
	if serverPort > 0 {
		serverPortField = strconv.Itoa(serverPort)
	}
	localPortField := ""
	if localPort > 0 {
		localPortField = strconv.Itoa(localPort)
	}

	atCmd := fmt.Sprintf("AT+SQNCOAPCREATE=%d,%s,%s,%s,%d,%d",
		ctxID, modemString(serverAddress), serverPortField, localPortField,
		modemBool(dtls), timeout)
	if secureProfileID > 0 {
		atCmd += fmt.Sprintf(",,%d", secureProfileID)
	}

	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  atCmd,
		expect: []string{"+SQNCOAPCONNECTED:", "+SQNCOAP: ERROR"},
		kind:   CmdTxWait,
		onComplete: func(result Result, r *Rsp) {
			if result != ResultOK {
				return
			}
			m.mu.Lock()
			m.coapCtxs[ctxID].Configured = true
			m.coapCtxs[ctxID].Connected = true
			m.mu.Unlock()
		},
	})
}

// CoapContextClose closes a CoAP context.
func (m *Modem) CoapContextClose(ctx context.Context, ctxID int, rsp *Rsp) bool {
	if !validCoapCtx(ctxID) {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+SQNCOAPCLOSE=%d", ctxID), "OK")
}

// CoapSetOptions configures one CoAP option for the next message. For
// repeatable options up to six values may be given, in order.
func (m *Modem) CoapSetOptions(ctx context.Context, ctxID int, action CoapOptionAction, option int, values []string, rsp *Rsp) bool {
	if !validCoapCtx(ctxID) {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	if len(values) > 1 && !coapRepeatableOptions[option] {
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}
	if len(values) > 6 {
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}

	atCmd := fmt.Sprintf("AT+SQNCOAPOPT=%d,%d,%d", ctxID, action, option)
	if len(values) > 0 {
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = modemString(v)
		}
		atCmd += "," + strings.Join(quoted, ",")
	}

	return m.RunCmd(ctx, rsp, atCmd, "OK")
}

// CoapSetHeader configures the message id and token of the next message.
// The token is hexadecimal, or "NO_TOKEN" for a header without one.
func (m *Modem) CoapSetHeader(ctx context.Context, ctxID, msgID int, token string, rsp *Rsp) bool {
	if !validCoapCtx(ctxID) {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	if msgID < 0 || msgID > coapMaxMsgID {
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}
	if token != "" {
		if len(token) > coapMaxTokenLen {
			if rsp != nil {
				rsp.Result = ResultError
			}
			return false
		}
		if token != "NO_TOKEN" {
			if _, err := strconv.ParseUint(token, 16, 64); err != nil {
				if rsp != nil {
					rsp.Result = ResultError
				}
				return false
			}
		}
	}

	return m.RunCmd(ctx, rsp,
		fmt.Sprintf("AT+SQNCOAPHDR=%d,%d,%s", ctxID, msgID, modemString(token)),
		"OK")
}

// CoapSend sends a CoAP message. A path or content type, when given, is
// applied through the option interface first.
func (m *Modem) CoapSend(ctx context.Context, ctxID int, msgType CoapType, method CoapMethod, data []byte, path, contentType string, rsp *Rsp) bool {
	if !validCoapCtx(ctxID) {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	if len(data) > coapMaxPayload {
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}

	if path != "" {
		parts := strings.Split(strings.Trim(path, "/"), "/")
		for len(parts) > 0 {
			chunk := parts
			if len(chunk) > 6 {
				chunk = chunk[:6]
			}
			if !m.CoapSetOptions(ctx, ctxID, CoapOptionSet, 11, chunk, rsp) {
				return false
			}
			parts = parts[len(chunk):]
		}
	}
	if contentType != "" {
		if !m.CoapSetOptions(ctx, ctxID, CoapOptionSet, 12, []string{contentType}, rsp) {
			return false
		}
	}

	return m.RunCmdWithData(ctx, rsp,
		fmt.Sprintf("AT+SQNCOAPSEND=%d,%d,%d,%d", ctxID, msgType, method, len(data)),
		data, "OK")
}

// CoapReceiveData reads the payload of a message announced by a ring.
func (m *Modem) CoapReceiveData(ctx context.Context, ctxID, msgID, maxBytes int, rsp *Rsp) bool {
	if !validCoapCtx(ctxID) {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	if maxBytes < 0 || maxBytes > coapMaxPayload {
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}

	return m.RunCmd(ctx, rsp,
		fmt.Sprintf("AT+SQNCOAPRCV=%d,%d,%d", ctxID, msgID, maxBytes), "OK")
}

// CoapReceiveOptions reads the options of a message announced by a ring.
func (m *Modem) CoapReceiveOptions(ctx context.Context, ctxID, msgID, maxOptions int, rsp *Rsp) bool {
	if !validCoapCtx(ctxID) {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	if maxOptions < 0 || maxOptions > coapMaxRecvOptions {
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}

	return m.RunCmd(ctx, rsp,
		fmt.Sprintf("AT+SQNCOAPRCVO=%d,%d,%d", ctxID, msgID, maxOptions), "OK")
}

// Response handlers.

func (m *Modem) handleCoapClosed(frame []byte) {
	parts := bytes.SplitN(after(frame, "+SQNCOAPCLOSED: "), []byte(","), 2)
	if len(parts) < 2 {
		return
	}
	ctxID := parseInt(parts[0])
	if !validCoapCtx(ctxID) {
		return
	}
	m.mu.Lock()
	m.coapCtxs[ctxID].Connected = false
	m.coapCtxs[ctxID].Cause = CoapCloseCause(unquote(string(parts[1])))
	m.mu.Unlock()
}

func (m *Modem) handleCoapConnected(frame []byte) {
	ctxID := parseInt(firstField(after(frame, "+SQNCOAPCONNECTED: ")))
	if !validCoapCtx(ctxID) {
		return
	}
	m.mu.Lock()
	m.coapCtxs[ctxID].Connected = true
	m.mu.Unlock()
}

func (m *Modem) handleCoapRing(frame []byte) {
	parts := bytes.Split(after(frame, "+SQNCOAPRING: "), []byte(","))
	if len(parts) < 6 {
		return
	}
	ctxID := parseInt(parts[0])
	if !validCoapCtx(ctxID) {
		return
	}

	ring := CoapRing{
		CtxID:   ctxID,
		MsgID:   parseInt(parts[1]),
		ReqResp: CoapReqResp(parseInt(parts[2])),
		Type:    CoapType(parseInt(parts[3])),
		Length:  parseInt(parts[5]),
	}
	if ring.ReqResp == CoapIndicationRequest {
		ring.Method = CoapMethod(parseInt(parts[4]))
	} else {
		ring.RspCode = parseInt(parts[4])
	}

	m.mu.Lock()
	m.coapCtxs[ctxID].Rings = append(m.coapCtxs[ctxID].Rings, ring)
	m.mu.Unlock()
}

// handleCoapRcv parses a received message: a header line followed by the
// payload separated by a CR that the parser restored into the frame.
func (m *Modem) handleCoapRcv(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	data := after(frame, "+SQNCOAPRCV: ")
	sep := bytes.IndexByte(data, '\r')
	if sep < 0 {
		return
	}
	header := bytes.Split(data[:sep], []byte(","))
	payload := data[sep+1:]
	if len(header) < 7 {
		return
	}

	resp := &CoapResponse{
		CtxID:   parseInt(header[0]),
		MsgID:   parseInt(header[1]),
		Token:   string(header[2]),
		ReqResp: CoapReqResp(parseInt(header[3])),
		Type:    CoapType(parseInt(header[4])),
		Length:  parseInt(header[6]),
		Payload: append([]byte(nil), payload...),
	}
	if resp.ReqResp == CoapIndicationRequest {
		resp.Method = CoapMethod(parseInt(header[5]))
	} else {
		resp.RspCode = parseInt(header[5])
	}

	cur.rsp.Kind = RspCoap
	cur.rsp.CoapResponse = resp
}

// handleCoapOpt captures the value of a read option operation.
func (m *Modem) handleCoapOpt(cur *command, frame []byte) {
	if cur == nil || len(cur.atCmd) == 0 {
		return
	}
	// Only a read action echoes the option back.
	if !bytes.HasPrefix(cur.atCmd, []byte("AT+SQNCOAPOPT=")) {
		return
	}
	args := bytes.Split(cur.atCmd[len("AT+SQNCOAPOPT="):], []byte(","))
	if len(args) < 2 || string(args[1]) != "2" {
		return
	}

	parts := strings.SplitN(string(after(frame, "+SQNCOAPOPT: ")), ",", 3)
	if len(parts) < 3 {
		return
	}
	cur.rsp.Kind = RspCoap
	cur.rsp.CoapOptions = append(cur.rsp.CoapOptions, CoapOption{
		CtxID:  parseInt([]byte(parts[0])),
		Option: parseInt([]byte(parts[1])),
		Value:  parts[2],
	})
}

func (m *Modem) handleCoapRcvo(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	parts := strings.SplitN(string(after(frame, "+SQNCOAPRCVO: ")), ",", 3)
	if len(parts) < 3 {
		return
	}
	cur.rsp.Kind = RspCoap
	cur.rsp.CoapOptions = append(cur.rsp.CoapOptions, CoapOption{
		CtxID:  parseInt([]byte(parts[0])),
		Option: parseInt([]byte(parts[1])),
		Value:  parts[2],
	})
}
