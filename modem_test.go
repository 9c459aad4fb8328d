package walter

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// beginResponder answers the begin sequence: it injects +SYSSTART once the
// reset pin has been released and acknowledges the baseline configuration
// commands.
func beginResponder(port *MockPort, reset *MockResetLine) {
	var mu sync.Mutex
	port.OnWrite = func(p []byte) {
		mu.Lock()
		defer mu.Unlock()
		s := string(p)
		if strings.Contains(s, "AT+CMEE=") || strings.Contains(s, "AT+CEREG=") {
			port.InjectRX([]byte("\r\nOK\r\n"))
		}
	}
	base := reset.Pulses()
	go func() {
		for reset.Pulses() == base {
			time.Sleep(5 * time.Millisecond)
		}
		// The reset pulse is held for 300ms before the wait command is
		// installed; inject the start report after that.
		time.Sleep(400 * time.Millisecond)
		port.InjectRX([]byte("\r\n+SYSSTART\r\n"))
	}()
}

func TestBeginBringsUpTheModem(t *testing.T) {
	port := NewMockPort()
	reset := NewMockResetLine()
	m := New(&Options{Port: port, Reset: reset})
	beginResponder(port, reset)

	require.NoError(t, m.Begin(context.Background()))
	t.Cleanup(func() { _ = m.Close() })

	assert.Equal(t, 1, reset.Pulses())
	tx := string(port.TX())
	assert.Contains(t, tx, "AT+CMEE=1\r\n")
	assert.Contains(t, tx, "AT+CEREG=1\r\n")
}

func TestBeginIsIdempotent(t *testing.T) {
	port := NewMockPort()
	reset := NewMockResetLine()
	m := New(&Options{Port: port, Reset: reset})
	beginResponder(port, reset)

	require.NoError(t, m.Begin(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	txAfterFirst := string(port.TX())

	require.NoError(t, m.Begin(context.Background()))

	assert.Equal(t, 1, reset.Pulses(), "second Begin must not reset again")
	assert.Equal(t, txAfterFirst, string(port.TX()),
		"second Begin must not touch the wire")
}

func TestSoftReset(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT^RESET": "\r\n+SYSSTART\r\n"})

	m.mu.Lock()
	m.regState = RegRegisteredHome
	m.mu.Unlock()

	require.True(t, m.SoftReset(context.Background(), nil))
	assert.Equal(t, RegNotSearching, m.NetworkRegState())
	assert.Contains(t, string(port.TX()), "AT^RESET\r\n")
}

func TestDeepSleepPersistsAndRestoresSubscriptions(t *testing.T) {
	port := NewMockPort()
	reset := NewMockResetLine()
	store := &MockRetentionStore{}
	m := New(&Options{Port: port, Reset: reset, Retention: store})
	beginResponder(port, reset)
	require.NoError(t, m.Begin(context.Background()))

	m.mu.Lock()
	m.mqttSubs = []MQTTSubscription{
		{Topic: "sensors/temperature", QoS: 1},
		{Topic: "commands", QoS: 0},
	}
	m.mu.Unlock()

	require.NoError(t, m.Sleep(context.Background(), time.Hour, false, true))

	// Wake up: a fresh begin cycle restores the subscription list.
	port.ClearTX()
	beginResponder(port, reset)
	require.NoError(t, m.Begin(context.Background()))
	t.Cleanup(func() { _ = m.Close() })

	m.mu.RLock()
	subs := append([]MQTTSubscription(nil), m.mqttSubs...)
	m.mu.RUnlock()
	assert.Equal(t, []MQTTSubscription{
		{Topic: "sensors/temperature", QoS: 1},
		{Topic: "commands", QoS: 0},
	}, subs)
}

func TestDeepSleepWithoutPersistDropsSubscriptions(t *testing.T) {
	port := NewMockPort()
	reset := NewMockResetLine()
	store := &MockRetentionStore{}
	m := New(&Options{Port: port, Reset: reset, Retention: store})
	beginResponder(port, reset)
	require.NoError(t, m.Begin(context.Background()))

	m.mu.Lock()
	m.mqttSubs = []MQTTSubscription{{Topic: "sensors/temperature", QoS: 1}}
	m.mu.Unlock()

	require.NoError(t, m.Sleep(context.Background(), time.Hour, false, false))

	beginResponder(port, reset)
	require.NoError(t, m.Begin(context.Background()))
	t.Cleanup(func() { _ = m.Close() })

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.Empty(t, m.mqttSubs)
}

func TestLightSleepKeepsDriverAlive(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)
	respond(port, map[string]string{"AT": "\r\nOK\r\n"})

	require.NoError(t, m.Sleep(context.Background(), 10*time.Millisecond, true, false))

	assert.True(t, m.CheckComm(context.Background(), nil),
		"driver must stay usable after a light sleep")
}

func TestCloseUnblocksPendingCommand(t *testing.T) {
	port := NewMockPort()
	m := newTestModem(t, port)

	done := make(chan bool, 1)
	go func() {
		var rsp Rsp
		done <- m.RunCmd(context.Background(), &rsp, "AT+HANG", "OK")
	}()

	require.True(t, port.WaitForTX("AT+HANG", time.Second))
	m.shutdown()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("pending command was not unblocked by shutdown")
	}
}
