package oxford

import "fmt"

// RampStatus is the control mode of a magnet sub-supply.
type RampStatus int

// The four ramp statuses of the iPS.
const (
	// Hold keeps the supply at its present output
	Hold RampStatus = iota

	// ToSet ramps toward the set point
	ToSet

	// Clamp shorts the output; a clamped supply must go through Hold
	// before it may ramp to set
	Clamp

	// ToZero ramps the output to zero
	ToZero
)

var statusTokens = map[RampStatus]string{
	Hold:   "HOLD",
	ToSet:  "RTOS",
	Clamp:  "CLMP",
	ToZero: "RTOZ",
}

var statusLabels = map[RampStatus]string{
	Hold:   "HOLD",
	ToSet:  "TO SET",
	Clamp:  "CLAMP",
	ToZero: "TO ZERO",
}

// String returns the human label, "TO SET" and friends
func (rs RampStatus) String() string {
	if s, ok := statusLabels[rs]; ok {
		return s
	}
	return fmt.Sprintf("RampStatus(%d)", int(rs))
}

// token returns the wire token the instrument uses, "RTOS" and friends
func (rs RampStatus) token() string {
	return statusTokens[rs]
}

// statusFromToken decodes a wire token into a RampStatus
func statusFromToken(tok string) (RampStatus, error) {
	for rs, t := range statusTokens {
		if t == tok {
			return rs, nil
		}
	}
	return Hold, fmt.Errorf("unknown ramp status token %q", tok)
}

// ParseRampStatus decodes a human label ("HOLD", "TO SET", "CLAMP",
// "TO ZERO") into a RampStatus
func ParseRampStatus(s string) (RampStatus, error) {
	for rs, l := range statusLabels {
		if l == s {
			return rs, nil
		}
	}
	return Hold, fmt.Errorf("unknown ramp status %q", s)
}
