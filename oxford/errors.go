package oxford

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidUID is generated when a sub-supply UID contains a colon,
	// which would corrupt the colon-delimited command framing
	ErrInvalidUID = errors.New(`invalid UID, must be an axis group or device name, e.g. "GRPX" or "PSU.M1"`)

	// ErrNotASocket is generated when the address does not designate a
	// host:port socket target and the driver is not simulated
	ErrNotASocket = errors.New("incorrect address, must be a socket target of the form XXX.XXX.XXX.XXX:7020")

	errTooFewIDNFields = errors.New("fewer than five colon-delimited fields")
)

// ValidationError is a request the driver rejected before sending anything
// to the instrument
type ValidationError struct {
	// Op is the operation that was rejected, e.g. "set ramp status"
	Op string

	// Reason says why
	Reason string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Op, ve.Reason)
}

// ProtocolError is a reply that was expected to carry a numeric or status
// payload but could not be parsed as one
type ProtocolError struct {
	Cmd  string
	Resp string
	Err  error
}

func (pe ProtocolError) Error() string {
	return fmt.Sprintf("malformed reply %q to command %q: %v", pe.Resp, pe.Cmd, pe.Err)
}

func (pe ProtocolError) Unwrap() error {
	return pe.Err
}
