package walter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/quickspot/go-walter/internal/constants"
)

// Socket management. The core owns the socket table; a create leases the
// first free entry and the +SQNSH URC frees it again when the modem closes
// the connection.

// socketByID resolves a socket id, falling back to the last used socket
// when id is zero.
func (m *Modem) socketByID(id int) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id == 0 {
		id = m.lastSocket
	}
	if id < 1 || id > constants.MaxSockets {
		return 0, false
	}
	return id, true
}

// SocketCreate leases a free socket in the given PDP context and configures
// its transmission parameters. The leased socket id is reported through the
// response.
func (m *Modem) SocketCreate(ctx context.Context, pdpContextID, mtu, exchangeTimeout, connTimeout, sendDelayMs int, rsp *Rsp) bool {
	if pdpContextID < 1 || pdpContextID > constants.MaxPDPContexts {
		if rsp != nil {
			rsp.Result = ResultNoSuchPDPContext
		}
		return false
	}

	m.mu.Lock()
	var sock *Socket
	for i := range m.sockets {
		if m.sockets[i].State == SocketFree {
			m.sockets[i].State = SocketReserved
			sock = &m.sockets[i]
			break
		}
	}
	if sock == nil {
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultNoFreeSocket
		}
		return false
	}

	id := sock.ID
	sock.PDPContextID = pdpContextID
	sock.MTU = mtu
	sock.ExchangeTimeout = exchangeTimeout
	sock.ConnTimeout = connTimeout
	sock.SendDelayMs = sendDelayMs
	m.lastSocket = id
	m.mu.Unlock()

	atCmd := fmt.Sprintf("AT+SQNSCFG=%d,%d,%d,%d,%d,%d",
		id, pdpContextID, mtu, exchangeTimeout, connTimeout*10, sendDelayMs/100)

	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  atCmd,
		expect: []string{"OK"},
		kind:   CmdTxWait,
		onComplete: func(result Result, r *Rsp) {
			r.Kind = RspSocketID
			r.SocketID = id
			m.mu.Lock()
			if result == ResultOK {
				m.sockets[id-1].State = SocketCreated
			} else {
				m.sockets[id-1].State = SocketFree
			}
			m.mu.Unlock()
		},
	})
}

// SocketDial connects a socket to a remote host so data can be exchanged.
func (m *Modem) SocketDial(ctx context.Context, socketID int, protocol SocketProto, remoteHost string, remotePort, localPort int, acceptAnyRemote SocketAcceptAnyRemote, rsp *Rsp) bool {
	id, ok := m.socketByID(socketID)
	if !ok {
		if rsp != nil {
			rsp.Result = ResultNoSuchSocket
		}
		return false
	}

	m.mu.Lock()
	sock := &m.sockets[id-1]
	sock.Protocol = protocol
	sock.AcceptAnyRemote = acceptAnyRemote
	sock.RemoteHost = remoteHost
	sock.RemotePort = remotePort
	sock.LocalPort = localPort
	m.lastSocket = id
	m.mu.Unlock()

	atCmd := fmt.Sprintf("AT+SQNSD=%d,%d,%d,%s,0,%d,1,%d,0",
		id, protocol, remotePort, modemString(remoteHost),
		localPort, acceptAnyRemote)

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
			m.sockets[id-1].State = SocketOpened
			m.mu.Unlock()
		},
	})
}

// SocketClose closes a socket and returns it to the free pool.
func (m *Modem) SocketClose(ctx context.Context, socketID int, rsp *Rsp) bool {
	id, ok := m.socketByID(socketID)
	if !ok {
		if rsp != nil {
			rsp.Result = ResultNoSuchSocket
		}
		return false
	}

	m.mu.Lock()
	m.lastSocket = id
	m.mu.Unlock()

	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  fmt.Sprintf("AT+SQNSH=%d", id),
		expect: []string{"OK"},
		kind:   CmdTxWait,
		onComplete: func(result Result, r *Rsp) {
			if result != ResultOK {
				return
			}
			m.mu.Lock()
			m.sockets[id-1].State = SocketFree
			m.mu.Unlock()
		},
	})
}

// SocketSend transmits data over a socket using the prompt-based extended
// send. The release assistance information tells an NB-IoT network whether
// more traffic is expected.
func (m *Modem) SocketSend(ctx context.Context, socketID int, data []byte, rai RAI, rsp *Rsp) bool {
	id, ok := m.socketByID(socketID)
	if !ok {
		if rsp != nil {
			rsp.Result = ResultNoSuchSocket
		}
		return false
	}

	m.mu.Lock()
	m.lastSocket = id
	m.mu.Unlock()

	return m.RunCmdWithData(ctx, rsp,
		fmt.Sprintf("AT+SQNSSENDEXT=%d,%d,%d", id, len(data), rai),
		data, "OK")
}

// handleSocketClosed frees the socket named by a +SQNSH URC in the mirror.
func (m *Modem) handleSocketClosed(frame []byte) {
	id := parseInt(after(frame, "+SQNSH: "))
	if id < 1 || id > constants.MaxSockets {
		return
	}
	m.mu.Lock()
	m.sockets[id-1].State = SocketFree
	m.lastSocket = id
	m.mu.Unlock()
}

// handleSocketConfig mirrors the socket parameters reported by +SQNSCFG.
func (m *Modem) handleSocketConfig(frame []byte) {
	parts := bytes.Split(after(frame, "+SQNSCFG: "), []byte(","))
	if len(parts) < 6 {
		return
	}
	id := parseInt(parts[0])
	if id < 1 || id > constants.MaxSockets {
		return
	}

	m.mu.Lock()
	sock := &m.sockets[id-1]
	sock.PDPContextID = parseInt(parts[1])
	sock.MTU = parseInt(parts[2])
	sock.ExchangeTimeout = parseInt(parts[3])
	sock.ConnTimeout = parseInt(parts[4]) / 10
	sock.SendDelayMs = parseInt(parts[5]) * 100
	m.mu.Unlock()
}
