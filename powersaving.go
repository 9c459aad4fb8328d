package walter

import (
	"context"
	"fmt"
)

// Power saving configuration: PSM and eDRX.

// psmTAUUnits maps the 3-bit T3412 unit prefix to its period in seconds.
var psmTAUUnits = []struct {
	prefix  int
	seconds int
}{
	{0b110, 320 * 3600},
	{0b010, 10 * 3600},
	{0b001, 1 * 3600},
	{0b000, 10 * 60},
	{0b101, 1 * 60},
	{0b100, 30},
	{0b011, 2},
}

// psmActiveUnits maps the 3-bit T3324 unit prefix to its period in seconds.
var psmActiveUnits = []struct {
	prefix  int
	seconds int
}{
	{0b010, 6 * 60},
	{0b001, 60},
	{0b000, 2},
}

// encodePSMPeriod converts a period in seconds into an 8-bit timer code:
// 3 bits of unit prefix followed by a 5-bit multiplier in [1..31]. The unit
// yielding the smallest residual wins; periods under 2 s clamp to 2 s.
func encodePSMPeriod(units []struct {
	prefix  int
	seconds int
}, seconds int, fallback string) string {
	if seconds < 2 {
		return fallback
	}

	bestResidual := -1
	bestCode := 0

	for _, unit := range units {
		floorMult := seconds / unit.seconds
		for _, mult := range []int{floorMult, floorMult + 1} {
			if mult < 1 || mult > 31 {
				continue
			}
			residual := seconds - mult*unit.seconds
			if residual < 0 {
				residual = -residual
			}
			if residual == 0 {
				return fmt.Sprintf("%08b", unit.prefix<<5|mult)
			}
			if bestResidual < 0 || residual < bestResidual {
				bestResidual = residual
				bestCode = unit.prefix<<5 | mult
			}
		}
	}

	if bestResidual < 0 {
		return fallback
	}
	return fmt.Sprintf("%08b", bestCode)
}

// encodeTAU encodes a periodic TAU in seconds as the T3412 code.
func encodeTAU(seconds int) string {
	return encodePSMPeriod(psmTAUUnits, seconds, "01100001")
}

// encodeActiveTime encodes an active time in seconds as the T3324 code.
func encodeActiveTime(seconds int) string {
	return encodePSMPeriod(psmActiveUnits, seconds, "00000001")
}

// ConfigPSM enables, disables or resets power saving mode. The periodic TAU
// and active time are given in seconds and only used when enabling;
// negative values leave the corresponding timer unset.
func (m *Modem) ConfigPSM(ctx context.Context, mode PSMMode, periodicTAUSeconds, activeTimeSeconds int, rsp *Rsp) bool {
	atCmd := fmt.Sprintf("AT+CPSMS=%d", mode)

	if mode == PSMEnable && (periodicTAUSeconds >= 0 || activeTimeSeconds >= 0) {
		atCmd += ",,,"
		if periodicTAUSeconds >= 0 {
			tau := encodeTAU(periodicTAUSeconds)
			if m.logger != nil {
				m.logger.Debugf("PSM: requesting T3412 %s", tau)
			}
			atCmd += `"` + tau + `"`
		}
		if activeTimeSeconds >= 0 {
			active := encodeActiveTime(activeTimeSeconds)
			if m.logger != nil {
				m.logger.Debugf("PSM: requesting T3324 %s", active)
			}
			atCmd += `,"` + active + `"`
		}
	}

	return m.RunCmd(ctx, rsp, atCmd, "OK")
}

// ConfigEDRX enables, disables or resets eDRX. The requested eDRX value and
// paging time window are 4-bit binary strings per the 3GPP tables; empty
// strings leave them unset.
func (m *Modem) ConfigEDRX(ctx context.Context, mode EDRXMode, requestedEDRXValue, pagingTimeWindow string, rsp *Rsp) bool {
	atCmd := fmt.Sprintf("AT+SQNEDRX=%d", mode)
	if mode == EDRXEnable || mode == EDRXEnableWithURC {
		if requestedEDRXValue != "" {
			atCmd += fmt.Sprintf(",4,%s", modemString(requestedEDRXValue))
			if pagingTimeWindow != "" {
				atCmd += "," + modemString(pagingTimeWindow)
			}
		}
	}
	return m.RunCmd(ctx, rsp, atCmd, "OK")
}
