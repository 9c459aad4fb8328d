package walter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/quickspot/go-walter/internal/constants"
)

// PDP context management. The core owns the context table; a create leases
// the first free entry and the completion handler promotes it.

// PDPContextParams configures a new PDP context. The zero value selects an
// IP context without compression on the default bearer.
type PDPContextParams struct {
	APN             string
	Type            PDPType
	PDPAddress      string
	HeaderComp      PDPHeaderCompression
	DataComp        PDPDataCompression
	IPv4AllocMethod PDPIPv4AddrAlloc
	RequestType     PDPRequestType
	PCSCFMethod     PDPPCSCFDiscovery
	ForIMCN         bool
	UseNSLPI        bool
	UseSecurePCO    bool
	UseNASIPv4MTU   bool
	UseLocalAddrInd bool
	UseNASNonIPMTU  bool
	AuthProto       PDPAuthProtocol
	AuthUser        string
	AuthPass        string
}

// CreatePDPContext leases a free PDP context, defines it in the modem and
// reports the leased context id through the response's SocketID-style
// field. The context becomes Inactive on success and returns to Free when
// the command fails.
func (m *Modem) CreatePDPContext(ctx context.Context, params PDPContextParams, rsp *Rsp) bool {
	if params.Type == "" {
		params.Type = PDPTypeIP
	}

	m.mu.Lock()
	var pdp *PDPContext
	for i := range m.pdpCtxs {
		if m.pdpCtxs[i].State == PDPContextFree {
			m.pdpCtxs[i].State = PDPContextReserved
			pdp = &m.pdpCtxs[i]
			break
		}
	}
	if pdp == nil {
		m.mu.Unlock()
		if rsp != nil {
			rsp.Result = ResultNoSuchPDPContext
		}
		return false
	}

	id := pdp.ID
	pdp.APN = params.APN
	pdp.Type = params.Type
	pdp.PDPAddress = params.PDPAddress
	pdp.HeaderComp = params.HeaderComp
	pdp.DataComp = params.DataComp
	pdp.IPv4AllocMethod = params.IPv4AllocMethod
	pdp.RequestType = params.RequestType
	pdp.PCSCFMethod = params.PCSCFMethod
	pdp.ForIMCN = params.ForIMCN
	pdp.UseNSLPI = params.UseNSLPI
	pdp.UseSecurePCO = params.UseSecurePCO
	pdp.UseNASIPv4MTU = params.UseNASIPv4MTU
	pdp.UseLocalAddrInd = params.UseLocalAddrInd
	pdp.UseNASNonIPMTU = params.UseNASNonIPMTU
	pdp.AuthProto = params.AuthProto
	pdp.AuthUser = params.AuthUser
	pdp.AuthPass = params.AuthPass
	m.lastPDPCtx = id
	m.mu.Unlock()

	atCmd := fmt.Sprintf("AT+CGDCONT=%d,%s,%s,%s,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d",
		id, modemString(string(params.Type)), modemString(params.APN),
		modemString(params.PDPAddress), params.DataComp, params.HeaderComp,
		params.IPv4AllocMethod, params.RequestType, params.PCSCFMethod,
		modemBool(params.ForIMCN), modemBool(params.UseNSLPI),
		modemBool(params.UseSecurePCO), modemBool(params.UseNASIPv4MTU),
		modemBool(params.UseLocalAddrInd), modemBool(params.UseNASNonIPMTU))

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
				m.pdpCtxs[id-1].State = PDPContextInactive
			} else {
				m.pdpCtxs[id-1].State = PDPContextFree
			}
			m.mu.Unlock()
		},
	})
}

// pdpContextByID resolves a context id, falling back to the last used
// context when id is zero.
func (m *Modem) pdpContextByID(id int) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id == 0 {
		id = m.lastPDPCtx
	}
	if id < 1 || id > constants.MaxPDPContexts {
		return 0, false
	}
	return id, true
}

// AuthenticatePDPContext applies the authentication parameters configured
// on the context. Contexts without authentication succeed immediately.
func (m *Modem) AuthenticatePDPContext(ctx context.Context, contextID int, rsp *Rsp) bool {
	id, ok := m.pdpContextByID(contextID)
	if !ok {
		if rsp != nil {
			rsp.Result = ResultNoSuchPDPContext
		}
		return false
	}

	m.mu.Lock()
	pdp := m.pdpCtxs[id-1]
	m.lastPDPCtx = id
	m.mu.Unlock()

	if pdp.AuthProto == PDPAuthNone {
		if rsp != nil {
			rsp.Result = ResultOK
		}
		return true
	}

	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+CGAUTH=%d,%d,%s,%s",
		id, pdp.AuthProto, modemString(pdp.AuthUser),
		modemString(pdp.AuthPass)), "OK")
}

// SetPDPContextActive activates or deactivates a PDP context.
func (m *Modem) SetPDPContextActive(ctx context.Context, active bool, contextID int, rsp *Rsp) bool {
	id, ok := m.pdpContextByID(contextID)
	if !ok {
		if rsp != nil {
			rsp.Result = ResultNoSuchPDPContext
		}
		return false
	}

	m.mu.Lock()
	m.lastPDPCtx = id
	m.mu.Unlock()

	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  fmt.Sprintf("AT+CGACT=%d,%d", modemBool(active), id),
		expect: []string{"OK"},
		kind:   CmdTxWait,
		onComplete: func(result Result, r *Rsp) {
			if result != ResultOK {
				return
			}
			m.mu.Lock()
			if active {
				m.pdpCtxs[id-1].State = PDPContextActive
			} else {
				m.pdpCtxs[id-1].State = PDPContextInactive
			}
			m.mu.Unlock()
		},
	})
}

// AttachPDPContext attaches to or detaches from the packet domain service
// on the last used PDP context.
func (m *Modem) AttachPDPContext(ctx context.Context, attach bool, rsp *Rsp) bool {
	return m.submit(cmdRequest{
		rsp:    rsp,
		atCmd:  fmt.Sprintf("AT+CGATT=%d", modemBool(attach)),
		expect: []string{"OK"},
		kind:   CmdTxWait,
		onComplete: func(result Result, r *Rsp) {
			if result != ResultOK {
				return
			}
			m.mu.Lock()
			if m.lastPDPCtx >= 1 && m.lastPDPCtx <= constants.MaxPDPContexts {
				m.pdpCtxs[m.lastPDPCtx-1].State = PDPContextAttached
			}
			m.mu.Unlock()
		},
	})
}

// GetPDPAddress retrieves the addresses of a PDP context.
func (m *Modem) GetPDPAddress(ctx context.Context, contextID int, rsp *Rsp) bool {
	id, ok := m.pdpContextByID(contextID)
	if !ok {
		if rsp != nil {
			rsp.Result = ResultNoSuchPDPContext
		}
		return false
	}

	m.mu.Lock()
	m.lastPDPCtx = id
	m.mu.Unlock()

	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+CGPADDR=%d", id), "OK")
}

// handleCGPAddr parses a +CGPADDR response into the address list.
func (m *Modem) handleCGPAddr(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	cur.rsp.Kind = RspPDPAddr
	cur.rsp.PDPAddresses = nil

	parts := bytes.Split(frame, []byte(","))
	if len(parts) > 1 && len(parts[1]) > 0 {
		cur.rsp.PDPAddresses = append(cur.rsp.PDPAddresses, unquote(string(parts[1])))
	}
	if len(parts) > 2 && len(parts[2]) > 0 {
		cur.rsp.PDPAddresses = append(cur.rsp.PDPAddresses, unquote(string(parts[2])))
	}
}
