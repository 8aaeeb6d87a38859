package oxford

import (
	"fmt"
	"strconv"
	"strings"
)

// command mnemonics for the PSU device class
const (
	cmdVoltage           = "SIG:VOLT"
	cmdCurrent           = "SIG:CURR"
	cmdCurrentPersistent = "SIG:PCUR"
	cmdCurrentTarget     = "SIG:CSET"
	cmdFieldTarget       = "SIG:FSET"
	cmdCurrentRampRate   = "SIG:RCST"
	cmdFieldRampRate     = "SIG:RFST"
	cmdField             = "SIG:FLD"
	cmdFieldPersistent   = "SIG:PFLD"
	cmdAToB              = "ATOB"
	cmdAction            = "ACTN"
)

// PSU is one sub-supply of the MercuryiPS, driving a single magnet axis.
// It holds no state; every accessor is a live exchange with the instrument.
type PSU struct {
	parent *MercuryIPS
	uid    string
}

// newPSU validates the UID and binds a sub-supply to its parent driver
func newPSU(parent *MercuryIPS, uid string) (*PSU, error) {
	if strings.Contains(uid, ":") {
		return nil, ErrInvalidUID
	}
	return &PSU{parent: parent, uid: uid}, nil
}

// UID returns the instrument-internal identifier of this sub-supply
func (p *PSU) UID() string {
	return p.uid
}

// get dresses and sends a READ command, parsing the payload with the
// given scaling into an SI value
func (p *PSU) get(cmd string, scaling float64) (float64, error) {
	dressed := fmt.Sprintf("READ:DEV:%s:PSU:%s", p.uid, cmd)
	resp, err := p.parent.ask(dressed)
	if err != nil {
		return 0, err
	}
	f, err := signalParser(scaling, resp)
	if err != nil {
		if pe, ok := err.(ProtocolError); ok {
			pe.Cmd = dressed
			return 0, pe
		}
		return 0, err
	}
	return f, nil
}

// set dresses and sends a SET command.  The instrument always very
// verbosely echoes the value back; the ack is checked by classification
// and otherwise discarded.
func (p *PSU) set(cmd, value string) error {
	dressed := fmt.Sprintf("SET:DEV:%s:PSU:%s:%s", p.uid, cmd, value)
	_, err := p.parent.ask(dressed)
	return err
}

func (p *PSU) setFloat(cmd string, value float64) error {
	return p.set(cmd, strconv.FormatFloat(value, 'g', -1, 64))
}

// Voltage returns the output voltage in V
func (p *PSU) Voltage() (float64, error) {
	return p.get(cmdVoltage, 1)
}

// Current returns the output current in A
func (p *PSU) Current() (float64, error) {
	return p.get(cmdCurrent, 1)
}

// CurrentPersistent returns the persistent-mode current in A
func (p *PSU) CurrentPersistent() (float64, error) {
	return p.get(cmdCurrentPersistent, 1)
}

// CurrentTarget returns the target current in A
func (p *PSU) CurrentTarget() (float64, error) {
	return p.get(cmdCurrentTarget, 1)
}

// SetCurrentTarget sets the target current in A
func (p *PSU) SetCurrentTarget(amps float64) error {
	return p.setFloat(cmdCurrentTarget, amps)
}

// FieldTarget returns the target field in T
func (p *PSU) FieldTarget() (float64, error) {
	return p.get(cmdFieldTarget, 1)
}

// SetFieldTarget sets the target field in T
func (p *PSU) SetFieldTarget(tesla float64) error {
	return p.setFloat(cmdFieldTarget, tesla)
}

// CurrentRampRate returns the current ramp rate in A/s.  The instrument
// holds it per minute and slaves it to the field ramp rate via ATOB;
// it is read-only here.
func (p *PSU) CurrentRampRate() (float64, error) {
	return p.get(cmdCurrentRampRate, 1.0/60.0)
}

// FieldRampRate returns the field ramp rate in T/s
func (p *PSU) FieldRampRate() (float64, error) {
	return p.get(cmdFieldRampRate, 1.0/60.0)
}

// SetFieldRampRate sets the field ramp rate in T/s (the instrument's
// native convention is per minute)
func (p *PSU) SetFieldRampRate(teslaPerSecond float64) error {
	return p.setFloat(cmdFieldRampRate, teslaPerSecond*60)
}

// Field returns the field strength in T
func (p *PSU) Field() (float64, error) {
	return p.get(cmdField, 1)
}

// FieldPersistent returns the persistent-mode field strength in T
func (p *PSU) FieldPersistent() (float64, error) {
	return p.get(cmdFieldPersistent, 1)
}

// AToB returns the current to field ratio in A/T
func (p *PSU) AToB() (float64, error) {
	return p.get(cmdAToB, 1)
}

// SetAToB sets the current to field ratio in A/T
func (p *PSU) SetAToB(ampsPerTesla float64) error {
	return p.setFloat(cmdAToB, ampsPerTesla)
}

// RampStatus returns the control mode of this sub-supply
func (p *PSU) RampStatus() (RampStatus, error) {
	dressed := fmt.Sprintf("READ:DEV:%s:PSU:%s", p.uid, cmdAction)
	resp, err := p.parent.ask(dressed)
	if err != nil {
		return Hold, err
	}
	tok := strings.ReplaceAll(resp, ":", "")
	rs, err := statusFromToken(tok)
	if err != nil {
		return Hold, ProtocolError{Cmd: dressed, Resp: resp, Err: err}
	}
	return rs, nil
}

// SetRampStatus sets the control mode.  A clamped supply cannot be sent
// toward its set point; the instrument would accept the command but leave
// the supply in an unsafe intermediate condition, so that transition is
// rejected client-side before anything is sent.
func (p *PSU) SetRampStatus(rs RampStatus) error {
	statusNow, err := p.RampStatus()
	if err != nil {
		return err
	}
	if statusNow == Clamp && rs == ToSet {
		return ValidationError{
			Op: "set ramp status",
			Reason: fmt.Sprintf("error in ramping unit %s: cannot ramp to target value; "+
				"power supply is clamped. Unclamp first by setting ramp status to HOLD", p.uid),
		}
	}
	return p.set(cmdAction, rs.token())
}
