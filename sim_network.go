package walter

import (
	"bytes"
	"context"
	"fmt"
	"time"
)

// SIM, network and radio operations plus the response handlers that keep
// the registration and radio mirror state current.

// ConfigCMEErrorReports configures the CME error report type. The driver
// expects numeric reports; changing this affects error parsing.
func (m *Modem) ConfigCMEErrorReports(ctx context.Context, reports CMEErrorReports, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+CMEE=%d", reports), "OK")
}

// ConfigCEREGReports configures the CEREG status report type. The driver
// expects reports to be enabled so the registration mirror stays current.
func (m *Modem) ConfigCEREGReports(ctx context.Context, reports CEREGReports, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+CEREG=%d", reports), "OK")
}

// GetOpState retrieves the modem's operational state.
func (m *Modem) GetOpState(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT+CFUN?", "OK")
}

// SetOpState sets the operational state of the modem.
func (m *Modem) SetOpState(ctx context.Context, state OpState, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+CFUN=%d", state), "OK")
}

// GetRAT retrieves the active radio access technology.
func (m *Modem) GetRAT(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT+SQNMODEACTIVE?", "OK")
}

// SetRAT sets the radio access technology. The new setting only takes
// effect after the modem restarts; callers that need it immediately follow
// up with SoftReset.
func (m *Modem) SetRAT(ctx context.Context, rat RAT, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+SQNMODEACTIVE=%d", rat), "OK")
}

// GetRadioBands retrieves the configured radio bands.
func (m *Modem) GetRadioBands(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT+SQNBANDSEL?", "OK")
}

// GetSIMState retrieves the state of the SIM card.
func (m *Modem) GetSIMState(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT+CPIN?", "OK")
}

// UnlockSIM sets the SIM card's PIN code. The modem must be in the full or
// no-RF operational state. An empty pin only queries the SIM state.
func (m *Modem) UnlockSIM(ctx context.Context, pin string, rsp *Rsp) bool {
	m.mu.Lock()
	m.simPIN = pin
	m.mu.Unlock()

	if pin == "" {
		return m.GetSIMState(ctx, rsp)
	}
	return m.RunCmd(ctx, rsp, "AT+CPIN="+pin, "OK")
}

// SetNetworkSelectionMode sets how the modem selects an operator. The
// operator name and format are sent for every mode except automatic.
func (m *Modem) SetNetworkSelectionMode(ctx context.Context, mode NetworkSelMode, operatorName string, format OperatorFormat, rsp *Rsp) bool {
	m.mu.Lock()
	m.networkSelMode = mode
	m.operator = Operator{Format: format, Name: operatorName}
	m.mu.Unlock()

	if mode == NetworkSelAutomatic {
		return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+COPS=%d", mode), "OK")
	}
	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+COPS=%d,%d,%s",
		mode, format, modemString(operatorName)), "OK")
}

// GetRSSI retrieves the received signal strength indication.
func (m *Modem) GetRSSI(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT+CSQ", "OK")
}

// GetSignalQuality retrieves the RSRQ and RSRP of the serving cell.
func (m *Modem) GetSignalQuality(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT+CESQ", "OK")
}

// GetCellInformation retrieves serving and neighbouring cell details.
func (m *Modem) GetCellInformation(ctx context.Context, reports SQNMONIReports, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, fmt.Sprintf("AT+SQNMONI=%d", reports), "OK")
}

// GetClock retrieves the current time and date from the modem.
func (m *Modem) GetClock(ctx context.Context, rsp *Rsp) bool {
	return m.RunCmd(ctx, rsp, "AT+CCLK?", "OK")
}

// Response handlers. These run on the dispatcher task.

func (m *Modem) handleCEREG(cur *command, frame []byte) {
	state := NetworkRegState(parseInt(firstField(after(frame, "+CEREG: "))))
	m.mu.Lock()
	m.regState = state
	m.mu.Unlock()
}

func (m *Modem) handleCFUN(cur *command, frame []byte) {
	state := OpState(parseInt(firstField(after(frame, "+CFUN: "))))
	m.mu.Lock()
	m.opState = state
	m.mu.Unlock()

	if cur == nil {
		return
	}
	cur.rsp.Kind = RspOpState
	cur.rsp.OpState = state
}

func (m *Modem) handleModeActive(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	cur.rsp.Kind = RspRAT
	cur.rsp.RAT = RAT(parseInt(after(frame, "+SQNMODEACTIVE: ")))
}

func (m *Modem) handleBandSel(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	data := after(frame, "+SQNBANDSEL: ")
	if len(data) < 2 {
		return
	}

	// The band selection response is multi-line; the list is created when
	// the first selection arrives.
	if cur.rsp.Kind != RspBandsetConfig {
		cur.rsp.Kind = RspBandsetConfig
		cur.rsp.BandSelConfig = nil
	}

	var sel BandSelection
	if data[0] == '0' {
		sel.RAT = RATLTEM
	} else {
		sel.RAT = RATNBIoT
	}

	parts := bytes.Split(data[2:], []byte(","))
	sel.Operator.Format = OperatorFormatLongAlphanumeric
	sel.Operator.Name = unquote(string(parts[0]))

	bandFields := parts[1:]
	switch {
	case len(bandFields) > 1:
		// The quoted list itself contains commas, so the quotes sit on
		// the outermost fields.
		bandFields[0] = bandFields[0][1:]
		last := bandFields[len(bandFields)-1]
		bandFields[len(bandFields)-1] = last[:len(last)-1]
		for _, f := range bandFields {
			sel.Bands = append(sel.Bands, parseInt(f))
		}
	case len(bandFields) == 1 && !bytes.Equal(bandFields[0], []byte(`""`)):
		sel.Bands = append(sel.Bands, parseInt(bytes.Trim(bandFields[0], `"`)))
	}

	cur.rsp.BandSelConfig = append(cur.rsp.BandSelConfig, sel)
}

var simStateNames = map[string]SIMState{
	"READY":         SIMReady,
	"SIM PIN":       SIMPINRequired,
	"SIM PUK":       SIMPUKRequired,
	"PH-SIM PIN":    SIMPhoneToSIMPINRequired,
	"PH-FSIM PIN":   SIMPhoneToFirstSIMPINRequired,
	"PH-FSIM PUK":   SIMPhoneToFirstSIMPUKRequired,
	"SIM PIN2":      SIMPIN2Required,
	"SIM PUK2":      SIMPUK2Required,
	"PH-NET PIN":    SIMNetworkPINRequired,
	"PH-NET PUK":    SIMNetworkPUKRequired,
	"PH-NETSUB PIN": SIMNetworkSubsetPINRequired,
	"PH-NETSUB PUK": SIMNetworkSubsetPUKRequired,
	"PH-SP PIN":     SIMServiceProviderPINRequired,
	"PH-SP PUK":     SIMServiceProviderPUKRequired,
	"PH-CORP PIN":   SIMCorporateSIMRequired,
	"PH-CORP PUK":   SIMCorporatePUKRequired,
}

func (m *Modem) handleCPIN(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	state, known := simStateNames[string(after(frame, "+CPIN: "))]
	if !known {
		cur.rsp.Kind = RspNoData
		return
	}
	cur.rsp.Kind = RspSIMState
	cur.rsp.SIMState = state
}

func (m *Modem) handleCSQ(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	raw := parseInt(firstField(after(frame, "+CSQ: ")))
	cur.rsp.Kind = RspRSSI
	cur.rsp.RSSI = -113 + raw*2
}

func (m *Modem) handleCESQ(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	parts := bytes.Split(frame, []byte(","))
	if len(parts) < 6 {
		return
	}
	cur.rsp.Kind = RspSignalQuality
	cur.rsp.SignalQuality = &SignalQuality{
		RSRQ: -195 + parseInt(parts[4])*5,
		RSRP: -140 + parseInt(parts[5]),
	}
}

func (m *Modem) handleCCLK(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	cur.rsp.Kind = RspClock
	cur.rsp.Clock = parseCCLKTime(unquote(string(after(frame, "+CCLK: "))))
}

// parseCCLKTime parses "yy/mm/dd,hh:nn:ss±qq" where qq is the timezone
// offset in quarters of an hour. Years before 2000 mean the modem has no
// network time yet; the zero time is returned.
func parseCCLKTime(s string) time.Time {
	if len(s) < 19 {
		return time.Time{}
	}
	yy := atoiAt(s, 0, 2)
	mm := atoiAt(s, 3, 5)
	dd := atoiAt(s, 6, 8)
	hh := atoiAt(s, 9, 11)
	nn := atoiAt(s, 12, 14)
	ss := atoiAt(s, 15, 17)
	qq := atoiAt(s, 18, len(s))
	if s[17] == '-' {
		qq = -qq
	}

	if yy >= 70 {
		return time.Time{}
	}

	t := time.Date(2000+yy, time.Month(mm), dd, hh, nn, ss, 0, time.UTC)
	return t.Add(-time.Duration(qq) * 15 * time.Minute)
}

func atoiAt(s string, from, to int) int {
	if from >= len(s) {
		return 0
	}
	if to > len(s) {
		to = len(s)
	}
	return parseInt([]byte(s[from:to]))
}

func (m *Modem) handleCellInfo(cur *command, frame []byte) {
	if cur == nil {
		return
	}
	cur.rsp.Kind = RspCellInfo

	info := &CellInformation{}
	cur.rsp.CellInformation = info

	data := frame
	if hasPrefix(frame, "+SQNMONI: ") {
		data = after(frame, "+SQNMONI: ")
	}

	firstKeyParsed := false
	for _, part := range bytes.Split(data, []byte(" ")) {
		i := bytes.IndexByte(part, ':')
		if i < 0 {
			continue
		}
		key := string(bytes.TrimSpace(part[:i]))
		value := string(bytes.TrimSpace(part[i+1:]))

		// The operator name is glued in front of the first key.
		if !firstKeyParsed && len(key) > 2 {
			name := key[:len(key)-2]
			if len(name) > 16 {
				name = name[:16]
			}
			info.NetName = name
			key = key[len(key)-2:]
			firstKeyParsed = true
		}

		switch key {
		case "Cc":
			info.CC = parseInt([]byte(value))
		case "Nc":
			info.NC = parseInt([]byte(value))
		case "RSRP":
			info.RSRP = parseFloat([]byte(value))
		case "CINR":
			info.CINR = parseFloat([]byte(value))
		case "RSRQ":
			info.RSRQ = parseFloat([]byte(value))
		case "TAC":
			info.TAC = parseInt([]byte(value))
		case "Id":
			info.PCI = parseInt([]byte(value))
		case "EARFCN":
			info.EARFCN = parseInt([]byte(value))
		case "PWR":
			info.RSSI = parseFloat([]byte(value))
		case "PAGING":
			info.Paging = parseInt([]byte(value))
		case "CID":
			if n, err := parseHex(value); err == nil {
				info.CID = n
			}
		case "BAND":
			info.Band = parseInt([]byte(value))
		case "BW":
			info.BW = parseInt([]byte(value))
		case "CE":
			info.CELevel = parseInt([]byte(value))
		}
	}
}
