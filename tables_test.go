package walter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Lease discipline of the PDP context and socket mirror tables.

func TestCreatePDPContextLeasesFirstFreeEntry(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT+CGDCONT=": "\r\nOK\r\n"})

	var rsp Rsp
	ok := m.CreatePDPContext(context.Background(),
		PDPContextParams{APN: "soracom.io", UseNSLPI: true}, &rsp)

	require.True(t, ok)
	assert.Equal(t, RspSocketID, rsp.Kind)
	assert.Equal(t, 1, rsp.SocketID)
	assert.Equal(t, PDPContextInactive, m.PDPContexts()[0].State)
	assert.Contains(t, string(port.TX()),
		`AT+CGDCONT=1,"IP","soracom.io",,0,0,0,0,0,0,1,0,0,0,0`)

	// The next create takes the next entry.
	var rsp2 Rsp
	require.True(t, m.CreatePDPContext(context.Background(),
		PDPContextParams{APN: "iot.example"}, &rsp2))
	assert.Equal(t, 2, rsp2.SocketID)
}

func TestCreatePDPContextReturnsLeaseOnFailure(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT+CGDCONT=": "\r\nERROR\r\n"})

	var rsp Rsp
	ok := m.CreatePDPContext(context.Background(),
		PDPContextParams{APN: "x", AuthProto: PDPAuthNone}, &rsp)

	require.False(t, ok)
	assert.Equal(t, PDPContextFree, m.PDPContexts()[0].State,
		"a failed create must return the leased entry")
}

func TestCreatePDPContextExhaustion(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	m.mu.Lock()
	for i := range m.pdpCtxs {
		m.pdpCtxs[i].State = PDPContextReserved
	}
	m.mu.Unlock()

	var rsp Rsp
	assert.False(t, m.CreatePDPContext(context.Background(), PDPContextParams{}, &rsp))
	assert.Equal(t, ResultNoSuchPDPContext, rsp.Result)
	assert.Equal(t, 0, port.WriteCalls())
}

func TestAuthenticatePDPContextWithoutAuthIsANoOp(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	m.mu.Lock()
	m.pdpCtxs[0].State = PDPContextInactive
	m.mu.Unlock()

	var rsp Rsp
	require.True(t, m.AuthenticatePDPContext(context.Background(), 1, &rsp))
	assert.Equal(t, ResultOK, rsp.Result)
	assert.Equal(t, 0, port.WriteCalls())
}

func TestAuthenticatePDPContextSendsCredentials(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT+CGAUTH=": "\r\nOK\r\n"})

	m.mu.Lock()
	m.pdpCtxs[0].State = PDPContextInactive
	m.pdpCtxs[0].AuthProto = PDPAuthPAP
	m.pdpCtxs[0].AuthUser = "user"
	m.pdpCtxs[0].AuthPass = "pass"
	m.mu.Unlock()

	require.True(t, m.AuthenticatePDPContext(context.Background(), 1, nil))
	assert.Contains(t, string(port.TX()), `AT+CGAUTH=1,1,"user","pass"`)
}

func TestPDPContextIDOutOfRange(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	var rsp Rsp
	assert.False(t, m.GetPDPAddress(context.Background(), 9, &rsp))
	assert.Equal(t, ResultNoSuchPDPContext, rsp.Result)
	assert.Equal(t, 0, port.WriteCalls(), "range errors must not touch the wire")
}

func TestSetPDPContextActivePromotesEntry(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT+CGACT=": "\r\nOK\r\n"})

	m.mu.Lock()
	m.pdpCtxs[0].State = PDPContextInactive
	m.mu.Unlock()

	require.True(t, m.SetPDPContextActive(context.Background(), true, 1, nil))
	assert.Equal(t, PDPContextActive, m.PDPContexts()[0].State)
	assert.Contains(t, string(port.TX()), "AT+CGACT=1,1\r\n")
}

func TestAttachPDPContextPromotesLastUsed(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT+CGATT=": "\r\nOK\r\n"})

	m.mu.Lock()
	m.pdpCtxs[2].State = PDPContextActive
	m.lastPDPCtx = 3
	m.mu.Unlock()

	require.True(t, m.AttachPDPContext(context.Background(), true, nil))
	assert.Equal(t, PDPContextAttached, m.PDPContexts()[2].State)
}

func TestSocketCreateLeasesEntry(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT+SQNSCFG=": "\r\nOK\r\n"})

	var rsp Rsp
	ok := m.SocketCreate(context.Background(), 1, 300, 90, 60, 5000, &rsp)

	require.True(t, ok)
	assert.Equal(t, RspSocketID, rsp.Kind)
	assert.Equal(t, 1, rsp.SocketID)
	assert.Equal(t, SocketCreated, m.Sockets()[0].State)
	assert.Contains(t, string(port.TX()), "AT+SQNSCFG=1,1,300,90,600,50\r\n")
}

func TestSocketCreateExhaustion(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	m.mu.Lock()
	for i := range m.sockets {
		m.sockets[i].State = SocketReserved
	}
	m.mu.Unlock()

	var rsp Rsp
	assert.False(t, m.SocketCreate(context.Background(), 1, 300, 90, 60, 5000, &rsp))
	assert.Equal(t, ResultNoFreeSocket, rsp.Result)
	assert.Equal(t, 0, port.WriteCalls())
}

func TestSocketIDOutOfRange(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	var rsp Rsp
	assert.False(t, m.SocketClose(context.Background(), 7, &rsp))
	assert.Equal(t, ResultNoSuchSocket, rsp.Result)

	rsp = Rsp{}
	assert.False(t, m.SocketSend(context.Background(), -1, []byte("x"), RAINoInfo, &rsp))
	assert.Equal(t, ResultNoSuchSocket, rsp.Result)

	assert.Equal(t, 0, port.WriteCalls())
}

func TestSocketDialOpensSocket(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT+SQNSD=": "\r\nOK\r\n"})

	m.mu.Lock()
	m.sockets[0].State = SocketCreated
	m.lastSocket = 1
	m.mu.Unlock()

	require.True(t, m.SocketDial(context.Background(), 0, SocketProtoUDP,
		"coap.example.com", 5683, 0, AcceptAnyRemoteDisabled, nil))

	sock := m.Sockets()[0]
	assert.Equal(t, SocketOpened, sock.State)
	assert.Equal(t, "coap.example.com", sock.RemoteHost)
	assert.Equal(t, 5683, sock.RemotePort)
	assert.Contains(t, string(port.TX()),
		`AT+SQNSD=1,1,5683,"coap.example.com",0,0,1,0,0`)
}

func TestSocketSendUsesPrompt(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	m.mu.Lock()
	m.sockets[0].State = SocketOpened
	m.lastSocket = 1
	m.mu.Unlock()

	port.OnWrite = func(p []byte) {
		s := string(p)
		if len(s) > 2 && s[0] == 'A' {
			port.InjectRX([]byte("\r\n> "))
		}
		if s == "abc" {
			port.InjectRX([]byte("\r\nOK\r\n"))
		}
	}

	require.True(t, m.SocketSend(context.Background(), 1, []byte("abc"),
		RAINoFurtherRXTXExpected, nil))
	assert.Contains(t, string(port.TX()), "AT+SQNSSENDEXT=1,3,1\nabc")
}

func TestSocketConfigURCUpdatesMirror(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	port.InjectRX([]byte("\r\n+SQNSCFG: 2,1,512,120,600,50\r\n"))

	require.Eventually(t, func() bool {
		return m.Sockets()[1].MTU == 512
	}, time.Second, time.Millisecond)

	sock := m.Sockets()[1]
	assert.Equal(t, 1, sock.PDPContextID)
	assert.Equal(t, 120, sock.ExchangeTimeout)
	assert.Equal(t, 60, sock.ConnTimeout)
	assert.Equal(t, 5000, sock.SendDelayMs)
}
