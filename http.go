package walter

import (
	"context"
	"fmt"
	"strings"

	"github.com/quickspot/go-walter/internal/constants"
	"github.com/quickspot/go-walter/internal/parser"
)

// HTTP over the modem's embedded client. A query or send arms the profile
// for a ring; the +SQNHTTPRING URC records status and content length, and
// HTTPDidRing fetches the body, which arrives behind a <<< marker framed by
// the parser in raw mode.

// HTTPConfigProfile configures an HTTP profile. The profile is stored
// persistently in the modem so it survives resets.
func (m *Modem) HTTPConfigProfile(ctx context.Context, profileID int, serverAddress string, port int, useBasicAuth bool, authUser, authPass string, tlsProfileID int, rsp *Rsp) bool {
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	if tlsProfileID > constants.MaxTLSProfiles {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}

	atCmd := fmt.Sprintf(`AT+SQNHTTPCFG=%d,"%s",%d,%d,"%s","%s"`,
		profileID, serverAddress, port, modemBool(useBasicAuth),
		authUser, authPass)
	if tlsProfileID > 0 {
		atCmd += fmt.Sprintf(",1,,,%d", tlsProfileID)
	}

	return m.RunCmd(ctx, rsp, atCmd, "OK")
}

// HTTPConnect opens the connection of a profile. The modem acknowledges
// immediately and connects in the background; poll HTTPGetContextStatus to
// see when the connection is up.
func (m *Modem) HTTPConnect(ctx context.Context, profileID int, rsp *Rsp) bool {
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+SQNHTTPCONNECT=%d", profileID), "OK")
}

// HTTPClose closes the connection of a profile.
func (m *Modem) HTTPClose(ctx context.Context, profileID int, rsp *Rsp) bool {
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}
	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+SQNHTTPDISCONNECT=%d", profileID), "OK")
}

// HTTPGetContextStatus returns the mirrored connection state of a profile.
func (m *Modem) HTTPGetContextStatus(profileID int) bool {
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.httpCtxs[profileID].Connected
}

// HTTPQuery performs a GET, DELETE or HEAD request. On success the profile
// expects a ring with the response metadata.
func (m *Modem) HTTPQuery(ctx context.Context, profileID int, uri string, queryCmd HTTPQueryCmd, extraHeaderLine string, rsp *Rsp) bool {
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}

	m.mu.Lock()
	if m.httpCtxs[profileID].State != HTTPContextIdle {
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultBusy
		}
		return false
	}
	m.mu.Unlock()

	atCmd := fmt.Sprintf("AT+SQNHTTPQRY=%d,%d,%s", profileID, queryCmd, modemString(uri))
	if extraHeaderLine != "" {
		atCmd += `,"` + extraHeaderLine + `"`
	}

	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  atCmd,
		expect: []string{"OK"},
		kind:   CmdTxWait,
		onComplete: func(result Result, r *Rsp) {
			if result != ResultOK {
				return
			}
			m.mu.Lock()
			m.httpCtxs[profileID].State = HTTPContextExpectRing
			m.mu.Unlock()
		},
	})
}

// HTTPSend performs a POST or PUT request with the given body. On success
// the profile expects a ring with the response metadata.
func (m *Modem) HTTPSend(ctx context.Context, profileID int, uri string, data []byte, sendCmd HTTPSendCmd, postParam HTTPPostParam, rsp *Rsp) bool {
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}

	m.mu.Lock()
	if m.httpCtxs[profileID].State != HTTPContextIdle {
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultBusy
		}
		return false
	}
	m.mu.Unlock()

	atCmd := fmt.Sprintf("AT+SQNHTTPSND=%d,%d,%s,%d",
		profileID, sendCmd, modemString(uri), len(data))
	if postParam != HTTPPostParamUnspecified {
		atCmd += fmt.Sprintf(`,"%d"`, postParam)
	}

	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  atCmd,
		expect: []string{"OK"},
		kind:   CmdDataTxWait,
		data:   data,
		onComplete: func(result Result, r *Rsp) {
			if result != ResultOK {
				return
			}
			m.mu.Lock()
			m.httpCtxs[profileID].State = HTTPContextExpectRing
			m.mu.Unlock()
		},
	})
}

// HTTPDidRing fetches the response of an earlier query or send, if any. It
// fails with NotExpectingRing when no request is outstanding and with
// AwaitingRing when the response has not arrived yet. A response without a
// body completes with the NoData result and the ring metadata.
func (m *Modem) HTTPDidRing(ctx context.Context, profileID int, rsp *Rsp) bool {
	m.mu.Lock()
	if m.httpCurrentProfile != noHTTPProfile {
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}

	httpCtx := &m.httpCtxs[profileID]
	switch httpCtx.State {
	case HTTPContextIdle:
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultNotExpectingRing
		}
		return false
	case HTTPContextExpectRing:
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultAwaitingRing
		}
		return false
	}

	// Status 0 means the request timed out or the connection dropped.
	if httpCtx.HTTPStatus == 0 {
		httpCtx.State = HTTPContextIdle
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultError
		}
		return false
	}

	if httpCtx.ContentLength == 0 {
		httpCtx.State = HTTPContextIdle
		status := httpCtx.HTTPStatus
		m.mu.Unlock()
		if rsp != nil {
			rsp.Kind = RspHTTP
			rsp.HTTPResponse = &HTTPResponse{HTTPStatus: status}
			rsp.Result = ResultNoData
		}
		return true
	}

	m.httpCurrentProfile = profileID
	m.mu.Unlock()

	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  fmt.Sprintf("AT+SQNHTTPRCV=%d", profileID),
		expect: []string{"<<<"},
		kind:   CmdTxWait,
		onComplete: func(result Result, r *Rsp) {
			// The profile returns to idle even when the fetch failed.
			m.mu.Lock()
			if m.httpCurrentProfile != noHTTPProfile {
				m.httpCtxs[m.httpCurrentProfile].State = HTTPContextIdle
				m.httpCurrentProfile = noHTTPProfile
			}
			m.mu.Unlock()
		},
	})
}

// handleHTTPBody populates the response from a raw-framed <<< body chunk.
func (m *Modem) handleHTTPBody(cur *command, frame []byte) Result {
	m.mu.RLock()
	p := m.httpCurrentProfile
	valid := p >= 0 && p < constants.MaxHTTPProfiles &&
		m.httpCtxs[p].State == HTTPContextGotRing
	var httpCtx HTTPContext
	if valid {
		httpCtx = m.httpCtxs[p]
	}
	m.mu.RUnlock()

	if !valid {
		return ResultError
	}
	if cur == nil {
		return ResultOK
	}

	body := frame[3:]
	if len(body) >= len(parser.Trailer) {
		body = body[:len(body)-len(parser.Trailer)]
	}

	cur.rsp.Kind = RspHTTP
	cur.rsp.HTTPResponse = &HTTPResponse{
		HTTPStatus:    httpCtx.HTTPStatus,
		ContentLength: httpCtx.ContentLength,
		ContentType:   httpCtx.ContentType,
		Data:          append([]byte(nil), body...),
	}
	return ResultOK
}

// handleHTTPRing records ring metadata for a profile that expects it.
func (m *Modem) handleHTTPRing(frame []byte) {
	parts := strings.SplitN(string(after(frame, "+SQNHTTPRING: ")), ",", 4)
	if len(parts) < 4 {
		return
	}
	profileID := parseInt([]byte(parts[0]))
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// A ring that nobody armed is dropped; the modem buffer is freed on
	// the next fetch for this profile.
	if m.httpCtxs[profileID].State != HTTPContextExpectRing {
		return
	}
	m.httpCtxs[profileID].State = HTTPContextGotRing
	m.httpCtxs[profileID].HTTPStatus = parseInt([]byte(parts[1]))
	m.httpCtxs[profileID].ContentType = parts[2]
	m.httpCtxs[profileID].ContentLength = parseInt([]byte(parts[3]))
}

func (m *Modem) handleHTTPConnect(frame []byte) {
	parts := strings.SplitN(string(after(frame, "+SQNHTTPCONNECT: ")), ",", 2)
	if len(parts) < 2 {
		return
	}
	profileID := parseInt([]byte(parts[0]))
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		return
	}
	m.mu.Lock()
	m.httpCtxs[profileID].Connected = parseInt([]byte(parts[1])) == 0
	m.mu.Unlock()
}

func (m *Modem) handleHTTPDisconnect(frame []byte) {
	profileID := parseInt(after(frame, "+SQNHTTPDISCONNECT: "))
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		return
	}
	m.mu.Lock()
	m.httpCtxs[profileID].Connected = false
	m.mu.Unlock()
}

func (m *Modem) handleHTTPSH(frame []byte) {
	profileID := parseInt(firstField(after(frame, "+SQNHTTPSH: ")))
	if profileID < 0 || profileID >= constants.MaxHTTPProfiles {
		return
	}
	m.mu.Lock()
	m.httpCtxs[profileID].Connected = false
	m.mu.Unlock()
}
