package oxford

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Sim is an in-memory MercuryiPS that speaks the wire grammar over an
// io.ReadWriteCloser, standing in for the instrument in simulation mode
// and in the test suite.  Ramps are not integrated over time; RTOS snaps
// the field to the set point and RTOZ snaps it to zero, which is enough
// to exercise every driver flow.
type Sim struct {
	mu     sync.Mutex
	groups map[string]*SimGroup
	rbuf   bytes.Buffer
	wbuf   bytes.Buffer
}

// SimGroup is the register file of one simulated sub-supply.  Units are
// the instrument's native ones (ramp rates per minute).
type SimGroup struct {
	Voltage           float64
	Current           float64
	CurrentPersistent float64
	CurrentTarget     float64
	Field             float64
	FieldPersistent   float64
	FieldTarget       float64
	FieldRampRate     float64 // T/min
	AToB              float64 // A/T
	Action            string  // HOLD, RTOS, CLMP or RTOZ
}

// NewSim returns a simulator with all three axis groups fitted, at zero
// field, holding
func NewSim() *Sim {
	groups := map[string]*SimGroup{}
	for _, uid := range []string{"GRPX", "GRPY", "GRPZ"} {
		groups[uid] = &SimGroup{
			AToB:          18.0,
			FieldRampRate: 0.12,
			Action:        "HOLD",
		}
	}
	return &Sim{groups: groups}
}

// Group returns the register file for a UID, or nil if not fitted
func (s *Sim) Group(uid string) *SimGroup {
	return s.groups[uid]
}

// Write accepts command bytes; every complete '\n'-terminated line is
// handled and its reply queued for Read
func (s *Sim) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wbuf.Write(p)
	for {
		line, err := s.wbuf.ReadString('\n')
		if err != nil {
			// partial line, put it back and wait for the rest
			s.wbuf.WriteString(line)
			break
		}
		reply := s.handle(strings.TrimSuffix(line, "\n"))
		s.rbuf.WriteString(reply)
		s.rbuf.WriteByte('\n')
	}
	return len(p), nil
}

// Read pops queued reply bytes; io.EOF when there is nothing pending
func (s *Sim) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rbuf.Len() == 0 {
		return 0, io.EOF
	}
	return s.rbuf.Read(p)
}

// Close satisfies io.ReadWriteCloser; there is nothing to release
func (s *Sim) Close() error {
	return nil
}

func (s *Sim) handle(line string) string {
	switch {
	case line == "*IDN?":
		return "IDN:OXFORD INSTRUMENTS:MERCURY IPS:170150002:2.6.04.000"
	case strings.HasPrefix(line, "READ:DEV:"):
		return s.handleRead(line)
	case strings.HasPrefix(line, "SET:DEV:"):
		return s.handleSet(line)
	}
	return "STAT:" + line + ":INVALID"
}

func (s *Sim) handleRead(line string) string {
	rest := strings.TrimPrefix(line, "READ:DEV:")
	invalid := "STAT:" + strings.TrimPrefix(line, "READ:") + ":INVALID"
	pieces := strings.SplitN(rest, ":", 3)
	if len(pieces) != 3 || pieces[1] != "PSU" {
		return invalid
	}
	g, ok := s.groups[pieces[0]]
	if !ok {
		return invalid
	}
	var payload string
	switch pieces[2] {
	case cmdVoltage:
		payload = simNum(g.Voltage) + "V"
	case cmdCurrent:
		payload = simNum(g.Current) + "A"
	case cmdCurrentPersistent:
		payload = simNum(g.CurrentPersistent) + "A"
	case cmdCurrentTarget:
		payload = simNum(g.CurrentTarget) + "A"
	case cmdFieldTarget:
		payload = simNum(g.FieldTarget) + "T"
	case cmdCurrentRampRate:
		payload = simNum(g.FieldRampRate*g.AToB) + "A/m"
	case cmdFieldRampRate:
		payload = simNum(g.FieldRampRate) + "T/m"
	case cmdField:
		payload = simNum(g.Field) + "T"
	case cmdFieldPersistent:
		payload = simNum(g.FieldPersistent) + "T"
	case cmdAToB:
		payload = simNum(g.AToB) + "A/T"
	case cmdAction:
		payload = g.Action
	default:
		return invalid
	}
	return "STAT:" + strings.TrimPrefix(line, "READ:") + ":" + payload
}

func (s *Sim) handleSet(line string) string {
	rest := strings.TrimPrefix(line, "SET:DEV:")
	invalid := "STAT:" + line + ":INVALID"
	pieces := strings.SplitN(rest, ":", 3)
	if len(pieces) != 3 || pieces[1] != "PSU" {
		return invalid
	}
	g, ok := s.groups[pieces[0]]
	if !ok {
		return invalid
	}
	// the value is the last colon field of the command
	idx := strings.LastIndex(pieces[2], ":")
	if idx < 0 {
		return invalid
	}
	cmd, value := pieces[2][:idx], pieces[2][idx+1:]
	switch cmd {
	case cmdFieldTarget:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid
		}
		g.FieldTarget = f
	case cmdCurrentTarget:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid
		}
		g.CurrentTarget = f
	case cmdFieldRampRate:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid
		}
		g.FieldRampRate = f
	case cmdAToB:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid
		}
		g.AToB = f
	case cmdAction:
		switch value {
		case "HOLD", "CLMP":
		case "RTOS":
			g.Field = g.FieldTarget
			g.Current = g.FieldTarget * g.AToB
		case "RTOZ":
			g.Field = 0
			g.Current = 0
		default:
			return invalid
		}
		g.Action = value
	default:
		return invalid
	}
	return "STAT:" + line + ":VALID"
}

func simNum(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
