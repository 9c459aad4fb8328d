package walter

import (
	"bytes"
	"context"
	"fmt"
	"time"
)

// GNSS operations. A single fix request runs on the modem at a time; every
// goroutine waiting on WaitForGNSSFix is released by the same
// +LPGNSSFIXREADY URC.

// GNSSConfig configures the GNSS receiver.
func (m *Modem) GNSSConfig(ctx context.Context, sensMode GNSSSensMode, acqMode GNSSAcqMode, locMode GNSSLocMode, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp,
		fmt.Sprintf("AT+LPGNSSCFG=%d,%d,2,,1,%d", locMode, sensMode, acqMode),
		"OK")
}

// GNSSAssistanceStatus queries the status of the assistance data.
func (m *Modem) GNSSAssistanceStatus(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT+LPGNSSASSISTANCE?", "OK")
}

// GNSSAssistanceUpdate downloads the given kind of assistance data over the
// active connection.
func (m *Modem) GNSSAssistanceUpdate(ctx context.Context, kind GNSSAssistanceType, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp,
		fmt.Sprintf("AT+LPGNSSASSISTANCE=%d", kind),
		"+LPGNSSASSISTANCE:")
}

// GNSSPerformAction starts or cancels a fix.
func (m *Modem) GNSSPerformAction(ctx context.Context, action GNSSAction, rsp *Rsp) bool {
	var actionStr string
	switch action {
	case GNSSActionGetSingleFix:
		actionStr = "single"
	case GNSSActionCancel:
		actionStr = "stop"
	}
	return m.RunCmd(ctx, rsp,
		fmt.Sprintf("AT+LPGNSSFIXPROG=\"%s\"", actionStr), "OK")
}

// WaitForGNSSFix blocks until the modem reports a fix or the context is
// cancelled. Multiple waiters all receive the same fix.
func (m *Modem) WaitForGNSSFix(ctx context.Context) (GNSSFix, error) {
	waiter := make(chan GNSSFix, 1)

	m.mu.Lock()
	m.gnssWaiters = append(m.gnssWaiters, waiter)
	m.mu.Unlock()

	select {
	case fix, ok := <-waiter:
		if !ok {
			return GNSSFix{}, ErrClosed
		}
		return fix, nil
	case <-ctx.Done():
		m.mu.Lock()
		kept := m.gnssWaiters[:0]
		for _, w := range m.gnssWaiters {
			if w != waiter {
				kept = append(kept, w)
			}
		}
		m.gnssWaiters = kept
		m.mu.Unlock()
		return GNSSFix{}, ctx.Err()
	}
}

// handleGNSSFixReady parses a fix report and fans it out to every waiter.
func (m *Modem) handleGNSSFixReady(frame []byte) {
	fix := parseGNSSFix(after(frame, "+LPGNSSFIXREADY: "))

	m.mu.Lock()
	waiters := m.gnssWaiters
	m.gnssWaiters = nil
	m.mu.Unlock()

	for _, w := range waiters {
		w <- fix
		close(w)
	}
}

// parseGNSSFix splits a fix report on commas outside parentheses: the
// satellite list groups (number, strength) pairs in parentheses of their
// own.
func parseGNSSFix(data []byte) GNSSFix {
	fix := GNSSFix{EstimatedConfidence: 20000000.0}

	parenOpen := false
	partNo := 0
	start := 0

	handlePart := func(part []byte) {
		switch partNo {
		case 0:
			fix.FixID = parseInt(part)
		case 1:
			fix.Timestamp = parseGNSSTime(string(trimEdges(part)))
		case 2:
			fix.TimeToFix = parseInt(part)
		case 3:
			fix.EstimatedConfidence = parseFloat(trimEdges(part))
		case 4:
			fix.Latitude = parseFloat(trimEdges(part))
		case 5:
			fix.Longitude = parseFloat(trimEdges(part))
		case 6:
			fix.Height = parseFloat(trimEdges(part))
		case 7:
			fix.NorthSpeed = parseFloat(trimEdges(part))
		case 8:
			fix.EastSpeed = parseFloat(trimEdges(part))
		case 9:
			fix.DownSpeed = parseFloat(trimEdges(part))
		case 10:
			// Raw satellite signal sample is ignored.
		default:
			pair := bytes.Split(part, []byte(","))
			for i := 0; i+1 < len(pair); i += 2 {
				fix.Sats = append(fix.Sats, GNSSSat{
					SatNo:          parseInt(bytes.TrimPrefix(pair[i], []byte("("))),
					SignalStrength: parseInt(bytes.TrimSuffix(pair[i+1], []byte(")"))),
				})
			}
		}
		partNo++
	}

	for i := 0; i < len(data); i++ {
		switch data[i] {
		case ',':
			if !parenOpen {
				handlePart(data[start:i])
				start = i + 1
			}
		case '(':
			parenOpen = true
		case ')':
			parenOpen = false
		}
	}
	if start < len(data) {
		handlePart(data[start:])
	}

	return fix
}

// trimEdges strips the single framing character on both sides of a part
// (quotes around strings, parentheses around grouped values).
func trimEdges(part []byte) []byte {
	if len(part) < 2 {
		return part
	}
	return part[1 : len(part)-1]
}

// parseGNSSTime parses "yyyy-mm-ddThh:nn[:ss]" as UTC. Years before 2000
// mean the receiver has no valid time; the zero time is returned.
func parseGNSSTime(s string) time.Time {
	if len(s) < 16 {
		return time.Time{}
	}
	yyyy := atoiAt(s, 0, 4)
	mm := atoiAt(s, 5, 7)
	dd := atoiAt(s, 8, 10)
	hh := atoiAt(s, 11, 13)
	nn := atoiAt(s, 14, 16)
	ss := 0
	if len(s) > 16 {
		ss = atoiAt(s, 17, 19)
	}

	if yyyy < 2000 {
		return time.Time{}
	}
	return time.Date(yyyy, time.Month(mm), dd, hh, nn, ss, 0, time.UTC)
}

// handleGNSSAssistance parses the multi-line assistance status response.
func (m *Modem) handleGNSSAssistance(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	if cur.rsp.Kind != RspGNSSAssistanceData {
		cur.rsp.Kind = RspGNSSAssistanceData
		cur.rsp.GNSSAssistance = &GNSSAssistance{}
	}

	parts := bytes.Split(after(frame, "+LPGNSSASSISTANCE: "), []byte(","))
	if len(parts) == 0 || len(parts[0]) == 0 {
		return
	}

	var details *GNSSAssistanceDetails
	switch parts[0][0] {
	case '0':
		details = &cur.rsp.GNSSAssistance.Almanac
	case '1':
		details = &cur.rsp.GNSSAssistance.RealtimeEphemeris
	case '2':
		details = &cur.rsp.GNSSAssistance.PredictedEphemeris
	default:
		return
	}

	if len(parts) > 1 {
		details.Available = parseInt(parts[1]) == 1
	}
	if len(parts) > 2 {
		details.LastUpdate = parseInt(parts[2])
	}
	if len(parts) > 3 {
		details.TimeToUpdate = parseInt(parts[3])
	}
	if len(parts) > 4 {
		details.TimeToExpire = parseInt(parts[4])
	}
}
