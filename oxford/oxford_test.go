package oxford

import (
	"io"
	"math"
	"testing"

	"github.com/maglab/mercuryips/fieldvec"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func simulated(t *testing.T, opts ...Option) *MercuryIPS {
	t.Helper()
	opts = append([]Option{Simulated(), WithLogger(quietLogger()), WithCommandRate(1e6)}, opts...)
	m, err := NewMercuryIPS("", opts...)
	require.NoError(t, err)
	return m
}

func TestSignalParser(t *testing.T) {
	cases := []struct {
		resp    string
		scaling float64
		want    float64
	}{
		{"12.345mA", 1, 0.012345},
		{"-3k", 1.0 / 60, -50.0},
		{"7", 1, 7.0},
		{"0.1200T/m", 1.0 / 60, 0.002},
		{"250n", 1, 250e-9},
		{"1.5M", 1, 1.5e6},
		{":1.2000T", 1, 1.2},
	}
	for _, tc := range cases {
		got, err := signalParser(tc.scaling, tc.resp)
		require.NoError(t, err, "resp %q", tc.resp)
		assert.InDelta(t, tc.want, got, 1e-12, "resp %q", tc.resp)
	}
}

func TestSignalParserMalformed(t *testing.T) {
	for _, resp := range []string{"", "NOPE", "--1.2", "..3"} {
		_, err := signalParser(1, resp)
		require.Error(t, err, "resp %q", resp)
		assert.IsType(t, ProtocolError{}, err)
	}
}

func TestReplyClassification(t *testing.T) {
	m := simulated(t)
	// SET ack carries the value in the second-to-last field
	got := m.classify("SET:DEV:GRPX:PSU:SIG:FSET:1.5",
		"STAT:SET:DEV:GRPX:PSU:SIG:FSET:1.5:VALID")
	assert.Equal(t, "1.5", got)
	// READ strips the echoed command by literal substring removal
	got = m.classify("READ:DEV:GRPX:PSU:SIG:FLD",
		"STAT:DEV:GRPX:PSU:SIG:FLD:1.2000T")
	assert.Equal(t, ":1.2000T", got)
	// instrument-rejected commands come back verbatim
	raw := "STAT:DEV:GRPX:PSU:SIG:XYZ:INVALID"
	got = m.classify("READ:DEV:GRPX:PSU:SIG:XYZ", raw)
	assert.Equal(t, raw, got)
}

func TestIdentification(t *testing.T) {
	m := simulated(t)
	idn, err := m.Identification()
	require.NoError(t, err)
	assert.Equal(t, "OXFORD INSTRUMENTS", idn.Vendor)
	assert.Equal(t, "MERCURY IPS", idn.Model)
	assert.Equal(t, "170150002", idn.Serial)
	assert.Equal(t, "2.6.04.000", idn.Firmware)
}

func TestUIDValidation(t *testing.T) {
	m := simulated(t)
	_, err := newPSU(m, "PSU:M1")
	assert.ErrorIs(t, err, ErrInvalidUID)
	_, err = newPSU(m, "PSU.M1")
	assert.NoError(t, err)
}

func TestAddressValidation(t *testing.T) {
	_, err := NewMercuryIPS("not-a-socket")
	assert.ErrorIs(t, err, ErrNotASocket)
}

func TestLiveReadings(t *testing.T) {
	sim := NewSim()
	g := sim.Group("GRPZ")
	g.Field = 1.5
	g.Voltage = 0.25
	g.Current = 27.0
	m := simulated(t, WithSimulator(sim))

	f, err := m.GRPZ.Field()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f, 1e-9)
	v, err := m.GRPZ.Voltage()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v, 1e-9)
	c, err := m.GRPZ.Current()
	require.NoError(t, err)
	assert.InDelta(t, 27.0, c, 1e-9)
}

func TestFieldTargetWrite(t *testing.T) {
	m := simulated(t)
	require.NoError(t, m.GRPX.SetFieldTarget(1.5))
	assert.InDelta(t, 1.5, m.Sim().Group("GRPX").FieldTarget, 1e-9)
	f, err := m.GRPX.FieldTarget()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f, 1e-9)
}

func TestRampRateMinuteConversions(t *testing.T) {
	m := simulated(t)
	// write converts T/s to the instrument's T/min
	require.NoError(t, m.GRPY.SetFieldRampRate(0.001))
	assert.InDelta(t, 0.06, m.Sim().Group("GRPY").FieldRampRate, 1e-9)
	// read converts back
	r, err := m.GRPY.FieldRampRate()
	require.NoError(t, err)
	assert.InDelta(t, 0.001, r, 1e-9)
	// the current ramp rate slavishly follows via ATOB
	cr, err := m.GRPY.CurrentRampRate()
	require.NoError(t, err)
	atob := m.Sim().Group("GRPY").AToB
	assert.InDelta(t, 0.001*atob, cr, 1e-6)
}

func TestRampStatusRoundTrip(t *testing.T) {
	m := simulated(t)
	rs, err := m.GRPX.RampStatus()
	require.NoError(t, err)
	assert.Equal(t, Hold, rs)
	require.NoError(t, m.GRPX.SetRampStatus(ToZero))
	rs, err = m.GRPX.RampStatus()
	require.NoError(t, err)
	assert.Equal(t, ToZero, rs)
	assert.Equal(t, "TO ZERO", rs.String())
}

func TestRampGuardClampedSupply(t *testing.T) {
	m := simulated(t)
	g := m.Sim().Group("GRPX")
	g.Action = "CLMP"
	g.FieldTarget = 1.0

	err := m.GRPX.SetRampStatus(ToSet)
	require.Error(t, err)
	assert.IsType(t, ValidationError{}, err)
	assert.Contains(t, err.Error(), "GRPX")
	// the guard fires before anything is sent
	assert.Equal(t, "CLMP", g.Action)
	assert.Equal(t, 0.0, g.Field)

	// unclamping first makes the same request legal
	require.NoError(t, m.GRPX.SetRampStatus(Hold))
	require.NoError(t, m.GRPX.SetRampStatus(ToSet))
	assert.Equal(t, "RTOS", g.Action)
	assert.InDelta(t, 1.0, g.Field, 1e-9)
}

func TestTargetSeededFromLiveField(t *testing.T) {
	sim := NewSim()
	sim.Group("GRPX").Field = 0.25
	sim.Group("GRPY").Field = -0.5
	m := simulated(t, WithSimulator(sim))
	tv := m.TargetVector()
	assert.InDelta(t, 0.25, tv.X, 1e-9)
	assert.InDelta(t, -0.5, tv.Y, 1e-9)
	assert.InDelta(t, 0.0, tv.Z, 1e-9)
}

func TestTargetSphericalRoundTrip(t *testing.T) {
	m := simulated(t)
	require.NoError(t, m.SetTarget(fieldvec.X, 1))
	require.NoError(t, m.SetTarget(fieldvec.Y, 0))
	require.NoError(t, m.SetTarget(fieldvec.Z, 0))
	assert.InDelta(t, 1, m.Target(fieldvec.R), 1e-12)
	assert.InDelta(t, math.Pi/2, m.Target(fieldvec.Theta), 1e-12)
	assert.InDelta(t, 0, m.Target(fieldvec.Phi), 1e-12)

	// and the inverse composes to identity
	require.NoError(t, m.SetTarget(fieldvec.R, 0.5))
	require.NoError(t, m.SetTarget(fieldvec.Theta, math.Pi/4))
	require.NoError(t, m.SetTarget(fieldvec.Phi, math.Pi/2))
	x, y, z := m.Target(fieldvec.X), m.Target(fieldvec.Y), m.Target(fieldvec.Z)
	want := fieldvec.FromSpherical(0.5, math.Pi/4, math.Pi/2)
	assert.InDelta(t, want.X, x, 1e-12)
	assert.InDelta(t, want.Y, y, 1e-12)
	assert.InDelta(t, want.Z, z, 1e-12)
}

func TestFieldLimitsEnforced(t *testing.T) {
	unitBall := func(x, y, z float64) bool { return x*x+y*y+z*z <= 1 }
	m := simulated(t, WithFieldLimits(unitBall))
	err := m.SetTarget(fieldvec.X, 2)
	require.Error(t, err)
	assert.IsType(t, ValidationError{}, err)
	// the live target is unchanged
	assert.Equal(t, 0.0, m.Target(fieldvec.X))
	require.NoError(t, m.SetTarget(fieldvec.X, 0.5))
	assert.InDelta(t, 0.5, m.Target(fieldvec.X), 1e-12)
}

func TestStageTargetPushesAllAxes(t *testing.T) {
	m := simulated(t)
	require.NoError(t, m.SetTarget(fieldvec.X, 0.1))
	require.NoError(t, m.SetTarget(fieldvec.Y, 0.2))
	require.NoError(t, m.SetTarget(fieldvec.Z, 0.3))
	require.NoError(t, m.StageTarget())
	assert.InDelta(t, 0.1, m.Sim().Group("GRPX").FieldTarget, 1e-9)
	assert.InDelta(t, 0.2, m.Sim().Group("GRPY").FieldTarget, 1e-9)
	assert.InDelta(t, 0.3, m.Sim().Group("GRPZ").FieldTarget, 1e-9)
	require.NoError(t, m.SetRampStatusAll(ToSet))
	assert.InDelta(t, 0.3, m.Sim().Group("GRPZ").Field, 1e-9)
}

func TestAxisResolution(t *testing.T) {
	m := simulated(t)
	for name, want := range map[string]*PSU{
		"x": m.GRPX, "Y": m.GRPY, "grpz": m.GRPZ,
	} {
		psu, err := m.Axis(name)
		require.NoError(t, err)
		assert.Same(t, want, psu)
	}
	_, err := m.Axis("w")
	assert.Error(t, err)
}
