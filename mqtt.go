package walter

import (
	"context"
	"fmt"
	"strings"
)

// MQTT over the modem's embedded client. The modem holds received messages
// until they are fetched; the library mirrors them in a bounded inbox fed
// by the +SQNSMQTTONMESSAGE URC. Subscriptions are tracked so they can be
// replayed after a reconnect or a deep sleep cycle.

// MQTTConfig configures the MQTT client.
func (m *Modem) MQTTConfig(ctx context.Context, clientID, userName, password string, tlsProfileID int, rsp *Rsp) bool {
	atCmd := fmt.Sprintf("AT+SQNSMQTTCFG=0,%s,%s,%s",
		modemString(clientID), modemString(userName), modemString(password))
	if tlsProfileID > 0 {
		atCmd += fmt.Sprintf(",%d", tlsProfileID)
	}
	return m.RunCmd(ctx, rsp, atCmd, "OK")
}

// MQTTConnect connects to an MQTT broker. Completion waits for the
// connection result URC, not the immediate OK.
func (m *Modem) MQTTConnect(ctx context.Context, serverName string, port, keepAlive int, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp,
		fmt.Sprintf("AT+SQNSMQTTCONNECT=0,%s,%d,%d",
			modemString(serverName), port, keepAlive),
		"+SQNSMQTTONCONNECT:0,")
}

// MQTTDisconnect disconnects from the broker.
func (m *Modem) MQTTDisconnect(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT+SQNSMQTTDISCONNECT=0",
		"+SQNSMQTTONDISCONNECT:0,")
}

// MQTTPublish publishes a payload using the prompt-based data upload.
func (m *Modem) MQTTPublish(ctx context.Context, topic string, data []byte, qos int, rsp *Rsp) bool {
	return m.RunCmdWithData(ctx, rsp,
		fmt.Sprintf("AT+SQNSMQTTPUBLISH=0,%s,%d,%d",
			modemString(topic), qos, len(data)),
		data, "+SQNSMQTTONPUBLISH:0,")
}

// MQTTSubscribe subscribes to a topic. Successful subscriptions are
// remembered and replayed on every reconnect.
func (m *Modem) MQTTSubscribe(ctx context.Context, topic string, qos int, rsp *Rsp) bool {
	return m.submit(cmdRequest{
		rsp: rsp,
		atCmd: fmt.Sprintf("AT+SQNSMQTTSUBSCRIBE=0,%s,%d",
			modemString(topic), qos),
		expect: []string{"+SQNSMQTTONSUBSCRIBE:0," + modemString(topic)},
		kind:   CmdTxWait,
		onComplete: func(result Result, r *Rsp) {
			if result != ResultOK {
				return
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, s := range m.mqttSubs {
				if s.Topic == topic {
					return
				}
			}
			m.mqttSubs = append(m.mqttSubs, MQTTSubscription{Topic: topic, QoS: qos})
		},
	})
}

// MQTTDidRing fetches the next pending message, optionally filtered by
// topic. The payload lines accumulate in msgTarget. It fails with the
// NoData result when no message is pending.
func (m *Modem) MQTTDidRing(ctx context.Context, topic string, msgTarget *[]string, rsp *Rsp) bool {
	m.mu.Lock()
	msgIndex := -1
	for i := range m.mqttInbox {
		msg := &m.mqttInbox[i]
		if !msg.Free && (topic == "" || msg.Topic == topic) {
			msgIndex = i
			break
		}
	}
	if msgIndex < 0 {
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultNoData
		}
		return false
	}

	msg := m.mqttInbox[msgIndex]
	m.mqttInbox[msgIndex].Free = true
	m.mu.Unlock()

	atCmd := fmt.Sprintf("AT+SQNSMQTTRCVMESSAGE=0,%s", modemString(msg.Topic))
	if msg.MessageID != "" {
		atCmd += "," + msg.MessageID
	}

	return m.submit(cmdRequest{
		rsp:        rsp,
		atCmd:      atCmd,
		expect:     []string{"OK"},
		kind:       CmdTxWait,
		ringReturn: msgTarget,
		onComplete: func(result Result, r *Rsp) {
			if result == ResultOK {
				r.MQTTResponse = &MQTTResponse{Topic: msg.Topic, QoS: msg.QoS}
			}
		},
	})
}

// addMsgToInbox stores ring metadata in the inbox. A QoS 0 message has no
// message id and overwrites the previous QoS 0 slot; duplicates of a
// (message id, topic) pair are dropped.
func (m *Modem) addMsgToInbox(messageID, topic string, length, qos int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qos == 0 {
		for i := range m.mqttInbox {
			if m.mqttInbox[i].QoS == 0 && !m.mqttInbox[i].Free {
				m.mqttInbox[i].Topic = topic
				m.mqttInbox[i].Length = length
				m.mqttInbox[i].Free = false
				return
			}
		}
	} else {
		for i := range m.mqttInbox {
			if !m.mqttInbox[i].Free &&
				m.mqttInbox[i].MessageID == messageID &&
				m.mqttInbox[i].Topic == topic {
				return
			}
		}
	}

	for i := range m.mqttInbox {
		if m.mqttInbox[i].Free {
			m.mqttInbox[i] = MQTTMessage{
				Topic:     topic,
				Length:    length,
				QoS:       qos,
				MessageID: messageID,
			}
			return
		}
	}

	if m.logger != nil {
		m.logger.Printf("MQTT inbox full, dropping message on %q", topic)
	}
}

// Response handlers.

func (m *Modem) handleMQTTOnConnect(cur *command, frame []byte) Result {
	parts := strings.SplitN(string(after(frame, "+SQNSMQTTONCONNECT:")), ",", 2)
	if len(parts) < 2 {
		return ResultError
	}
	rc := MQTTResultCode(parseInt([]byte(parts[1])))

	if cur != nil && len(cur.atCmd) > 0 {
		cur.rsp.Kind = RspMQTT
		cur.rsp.MQTTResultCode = rc
	}

	m.mu.Lock()
	if rc == MQTTSuccess {
		m.mqttStatus = MQTTConnected
	} else {
		m.mqttStatus = MQTTDisconnected
	}
	subs := append([]MQTTSubscription(nil), m.mqttSubs...)
	connected := m.mqttStatus == MQTTConnected
	m.mu.Unlock()

	// Re-establish tracked subscriptions in the background: the dispatcher
	// cannot submit commands to itself.
	if connected && len(subs) > 0 {
		go func() {
			for _, s := range subs {
				m.MQTTSubscribe(context.Background(), s.Topic, s.QoS, nil)
			}
		}()
	}

	if rc != MQTTSuccess {
		return ResultError
	}
	return ResultOK
}

func (m *Modem) handleMQTTOnPublish(cur *command, frame []byte) Result {
	parts := strings.Split(string(frame), ",")
	rc := MQTTResultCode(parseInt([]byte(parts[len(parts)-1])))

	if cur != nil && len(cur.atCmd) > 0 {
		cur.rsp.Kind = RspMQTT
		cur.rsp.MQTTResultCode = rc
	}

	if rc != MQTTSuccess {
		return ResultError
	}
	return ResultOK
}

func (m *Modem) handleMQTTOnDisconnect(cur *command, frame []byte) Result {
	parts := strings.SplitN(string(after(frame, "+SQNSMQTTONDISCONNECT:")), ",", 2)
	if len(parts) < 2 {
		return ResultError
	}
	rc := MQTTResultCode(parseInt([]byte(parts[1])))

	if cur != nil && len(cur.atCmd) > 0 {
		cur.rsp.Kind = RspMQTT
		cur.rsp.MQTTResultCode = rc
	}

	if rc != MQTTSuccess {
		return ResultError
	}

	m.mu.Lock()
	m.mqttStatus = MQTTDisconnected
	m.mqttSubs = nil
	for i := range m.mqttInbox {
		m.mqttInbox[i].Free = true
	}
	m.mu.Unlock()

	return ResultOK
}

func (m *Modem) handleMQTTOnMessage(frame []byte) {
	parts := strings.Split(string(after(frame, "+SQNSMQTTONMESSAGE:")), ",")
	if len(parts) < 4 {
		return
	}
	topic := unquote(parts[1])
	length := parseInt([]byte(parts[2]))
	qos := parseInt([]byte(parts[3]))
	messageID := ""
	if qos != 0 && len(parts) > 4 {
		messageID = parts[4]
	}

	m.addMsgToInbox(messageID, topic, length, qos)
}

func (m *Modem) handleMQTTMemoryFull() {
	if m.logger != nil {
		m.logger.Printf("modem MQTT memory full, freeing inbox")
	}
	m.mu.Lock()
	for i := range m.mqttInbox {
		m.mqttInbox[i].Free = true
	}
	m.mu.Unlock()
}

func (m *Modem) handleMQTTOnSubscribe(cur *command, frame []byte) Result {
	parts := strings.Split(string(frame), ",")
	rc := MQTTResultCode(parseInt([]byte(parts[len(parts)-1])))

	if cur != nil && len(cur.atCmd) > 0 {
		cur.rsp.Kind = RspMQTT
		cur.rsp.MQTTResultCode = rc
	}

	if rc != MQTTSuccess {
		return ResultError
	}
	return ResultOK
}
