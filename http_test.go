package walter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPQueryArmsRing(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT+SQNHTTPQRY=0": "\r\nOK\r\n"})

	require.True(t, m.HTTPQuery(context.Background(), 0, "/index.html", HTTPQueryGet, "", nil))
	assert.Equal(t, HTTPContextExpectRing, m.HTTPContexts()[0].State)
	assert.Contains(t, string(port.TX()), "AT+SQNHTTPQRY=0,0,\"/index.html\"\r\n")
}

func TestHTTPQueryWhileBusy(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	m.mu.Lock()
	m.httpCtxs[1].State = HTTPContextExpectRing
	m.mu.Unlock()

	var rsp Rsp
	ok := m.HTTPQuery(context.Background(), 1, "/", HTTPQueryGet, "", &rsp)

	require.False(t, ok)
	assert.Equal(t, ResultBusy, rsp.Result)
	assert.Equal(t, 0, port.WriteCalls())
}

func TestHTTPRingURCUpdatesMirror(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	m.mu.Lock()
	m.httpCtxs[1].State = HTTPContextExpectRing
	m.mu.Unlock()

	port.InjectRX([]byte("\r\n+SQNHTTPRING: 1,200,text/html,64\r\n"))

	require.Eventually(t, func() bool {
		return m.HTTPContexts()[1].State == HTTPContextGotRing
	}, time.Second, time.Millisecond)

	httpCtx := m.HTTPContexts()[1]
	assert.Equal(t, 200, httpCtx.HTTPStatus)
	assert.Equal(t, "text/html", httpCtx.ContentType)
	assert.Equal(t, 64, httpCtx.ContentLength)
}

func TestHTTPRingWithoutQueryIsIgnored(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	port.InjectRX([]byte("\r\n+SQNHTTPRING: 0,200,text/html,64\r\n"))
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, HTTPContextIdle, m.HTTPContexts()[0].State)
}

func TestHTTPDidRingProtocolErrors(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	var rsp Rsp
	assert.False(t, m.HTTPDidRing(context.Background(), 7, &rsp))
	assert.Equal(t, ResultNoSuchProfile, rsp.Result)

	rsp = Rsp{}
	assert.False(t, m.HTTPDidRing(context.Background(), 0, &rsp))
	assert.Equal(t, ResultNotExpectingRing, rsp.Result)

	m.mu.Lock()
	m.httpCtxs[0].State = HTTPContextExpectRing
	m.mu.Unlock()
	rsp = Rsp{}
	assert.False(t, m.HTTPDidRing(context.Background(), 0, &rsp))
	assert.Equal(t, ResultAwaitingRing, rsp.Result)

	assert.Equal(t, 0, port.WriteCalls(), "protocol errors must not touch the wire")
}

func TestHTTPDidRingWithoutBody(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	m.mu.Lock()
	m.httpCtxs[0].State = HTTPContextGotRing
	m.httpCtxs[0].HTTPStatus = 204
	m.httpCtxs[0].ContentLength = 0
	m.mu.Unlock()

	var rsp Rsp
	ok := m.HTTPDidRing(context.Background(), 0, &rsp)

	require.True(t, ok, "an empty body is still a successful response")
	assert.Equal(t, ResultNoData, rsp.Result)
	assert.Equal(t, RspHTTP, rsp.Kind)
	require.NotNil(t, rsp.HTTPResponse)
	assert.Equal(t, 204, rsp.HTTPResponse.HTTPStatus)
	assert.Equal(t, 0, port.WriteCalls())
	assert.Equal(t, HTTPContextIdle, m.HTTPContexts()[0].State)
}

func TestHTTPDidRingStatusZeroMeansError(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	m.mu.Lock()
	m.httpCtxs[0].State = HTTPContextGotRing
	m.httpCtxs[0].HTTPStatus = 0
	m.mu.Unlock()

	var rsp Rsp
	assert.False(t, m.HTTPDidRing(context.Background(), 0, &rsp))
	assert.Equal(t, ResultError, rsp.Result)
	assert.Equal(t, HTTPContextIdle, m.HTTPContexts()[0].State)
}

func TestHTTPConnectionStateFollowsURCs(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	port.InjectRX([]byte("\r\n+SQNHTTPCONNECT: 0,0\r\n"))
	require.Eventually(t, func() bool {
		return m.HTTPGetContextStatus(0)
	}, time.Second, time.Millisecond)

	port.InjectRX([]byte("\r\n+SQNHTTPSH: 0,1\r\n"))
	require.Eventually(t, func() bool {
		return !m.HTTPGetContextStatus(0)
	}, time.Second, time.Millisecond)
}

func TestHTTPConfigProfileValidation(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	var rsp Rsp
	assert.False(t, m.HTTPConfigProfile(context.Background(), 3,
		"example.com", 80, false, "", "", 0, &rsp))
	assert.Equal(t, ResultNoSuchProfile, rsp.Result)
	assert.Equal(t, 0, port.WriteCalls())
}

func TestHTTPSendUsesDataPrompt(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	port.OnWrite = func(p []byte) {
		s := string(p)
		if len(s) > 0 && s[0] == 'A' {
			port.InjectRX([]byte("\r\n>>> "))
		}
		if s == "body" {
			port.InjectRX([]byte("\r\nOK\r\n"))
		}
	}

	require.True(t, m.HTTPSend(context.Background(), 0, "/submit",
		[]byte("body"), HTTPSendPost, HTTPPostParamJSON, nil))

	assert.Contains(t, string(port.TX()),
		"AT+SQNHTTPSND=0,0,\"/submit\",4,\"4\"\nbody")
	assert.Equal(t, HTTPContextExpectRing, m.HTTPContexts()[0].State)
}
