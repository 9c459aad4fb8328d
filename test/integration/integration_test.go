// Package integration exercises the full driver stack end-to-end over the
// mock port: begin sequence, network attach, sockets, HTTP ring protocol
// and MQTT messaging, with responses scripted the way the modem emits them
// on the wire.
package integration

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walter "github.com/quickspot/go-walter"
)

// scriptedModem injects canned responses for every command the scenario
// sends, emulating the Sequans firmware's framing.
func scriptedModem(port *walter.MockPort, reset *walter.MockResetLine) {
	var mu sync.Mutex
	rules := []struct {
		trigger  string
		response string
	}{
		{"AT+CMEE=", "\r\nOK\r\n"},
		{"AT+CEREG=", "\r\nOK\r\n"},
		{"AT+CFUN=", "\r\nOK\r\n"},
		{"AT+CGDCONT=", "\r\nOK\r\n"},
		{"AT+CGACT=", "\r\nOK\r\n"},
		{"AT+CGATT=", "\r\n+CEREG: 1\r\n\r\nOK\r\n"},
		{"AT+SQNSCFG=", "\r\nOK\r\n"},
		{"AT+SQNSD=", "\r\nOK\r\n"},
		{"AT+SQNSH=", "\r\nOK\r\n"},
		{"AT+SQNHTTPCFG=", "\r\nOK\r\n"},
		{"AT+SQNHTTPQRY=", "\r\nOK\r\n"},
		{"AT+SQNHTTPRCV=", "\r\n<<<hello world\r\nOK\r\n"},
		{"AT+SQNSMQTTCFG=", "\r\nOK\r\n"},
		{"AT+SQNSMQTTCONNECT=", "\r\n+SQNSMQTTONCONNECT:0,0\r\n"},
		{"AT+SQNSMQTTSUBSCRIBE=", "\r\n+SQNSMQTTONSUBSCRIBE:0,\"downlink\",0\r\n"},
		{"AT+SQNSMQTTRCVMESSAGE=", "\r\nping\r\nOK\r\n"},
		{"AT+SQNSMQTTDISCONNECT=", "\r\n+SQNSMQTTONDISCONNECT:0,0\r\n"},
	}

	port.OnWrite = func(p []byte) {
		mu.Lock()
		defer mu.Unlock()
		s := string(p)
		if strings.Contains(s, "AT+SQNSSENDEXT=") {
			port.InjectRX([]byte("\r\n> "))
			return
		}
		if s == "payload" || s == "measurement" {
			port.InjectRX([]byte("\r\nOK\r\n"))
			return
		}
		for _, rule := range rules {
			if strings.Contains(s, rule.trigger) {
				port.InjectRX([]byte(rule.response))
				return
			}
		}
	}

	base := reset.Pulses()
	go func() {
		for reset.Pulses() == base {
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(400 * time.Millisecond)
		port.InjectRX([]byte("\r\n+SYSSTART\r\n"))
	}()
}

func TestFullConnectivityScenario(t *testing.T) {
	port := walter.NewMockPort()
	reset := walter.NewMockResetLine()
	m := walter.New(&walter.Options{Port: port, Reset: reset})
	scriptedModem(port, reset)

	ctx := context.Background()
	require.NoError(t, m.Begin(ctx))
	t.Cleanup(func() { _ = m.Close() })

	// Bring the radio up and create a bearer.
	require.True(t, m.SetOpState(ctx, walter.OpStateFull, nil))

	var pdpRsp walter.Rsp
	require.True(t, m.CreatePDPContext(ctx,
		walter.PDPContextParams{APN: "iot.example"}, &pdpRsp))
	ctxID := pdpRsp.SocketID
	require.True(t, m.SetPDPContextActive(ctx, true, ctxID, nil))
	require.True(t, m.AttachPDPContext(ctx, true, nil))

	// The CEREG URC delivered alongside the attach updates the mirror.
	assert.Eventually(t, func() bool {
		return m.NetworkRegState().Registered()
	}, time.Second, time.Millisecond)

	// Datagram socket round-trip.
	var sockRsp walter.Rsp
	require.True(t, m.SocketCreate(ctx, ctxID, 300, 90, 60, 5000, &sockRsp))
	sockID := sockRsp.SocketID
	require.True(t, m.SocketDial(ctx, sockID, walter.SocketProtoUDP,
		"udp.example.com", 7, 0, walter.AcceptAnyRemoteDisabled, nil))
	require.True(t, m.SocketSend(ctx, sockID, []byte("measurement"),
		walter.RAINoInfo, nil))
	require.True(t, m.SocketClose(ctx, sockID, nil))

	// HTTP request and ring-driven body fetch.
	require.True(t, m.HTTPConfigProfile(ctx, 0, "api.example.com", 80,
		false, "", "", 0, nil))
	require.True(t, m.HTTPQuery(ctx, 0, "/v1/data", walter.HTTPQueryGet, "", nil))
	port.InjectRX([]byte("\r\n+SQNHTTPRING: 0,200,text/plain,11\r\n"))
	require.Eventually(t, func() bool {
		return m.HTTPContexts()[0].State == walter.HTTPContextGotRing
	}, time.Second, time.Millisecond)

	var httpRsp walter.Rsp
	require.True(t, m.HTTPDidRing(ctx, 0, &httpRsp))
	require.NotNil(t, httpRsp.HTTPResponse)
	assert.Equal(t, 200, httpRsp.HTTPResponse.HTTPStatus)
	assert.Equal(t, []byte("hello world"), httpRsp.HTTPResponse.Data)

	// MQTT session with an incoming message.
	require.True(t, m.MQTTConfig(ctx, "walter-test", "", "", 0, nil))
	require.True(t, m.MQTTConnect(ctx, "broker.example.com", 1883, 60, nil))
	require.True(t, m.MQTTSubscribe(ctx, "downlink", 1, nil))

	port.InjectRX([]byte("\r\n+SQNSMQTTONMESSAGE:0,\"downlink\",4,0\r\n"))
	var lines []string
	var mqttRsp walter.Rsp
	require.Eventually(t, func() bool {
		lines = nil
		return m.MQTTDidRing(ctx, "downlink", &lines, &mqttRsp)
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"ping"}, lines)

	require.True(t, m.MQTTDisconnect(ctx, nil))

	snap := m.MetricsSnapshot()
	assert.Greater(t, snap.CommandsOK, uint64(10))
	assert.Zero(t, snap.CommandTimeouts)
}
