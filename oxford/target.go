package oxford

import (
	"fmt"

	"github.com/maglab/mercuryips/fieldvec"
)

// TargetVector returns the staged target field
func (m *MercuryIPS) TargetVector() fieldvec.Vector {
	return m.target
}

// Target returns one component of the staged target field, in T or radians
func (m *MercuryIPS) Target(c fieldvec.Component) float64 {
	return m.target.Component(c)
}

// SetTarget stages a new value for one component of the target field.
// The candidate vector is built immutably, checked against the field
// limits, and committed with a single assignment, so a rejected set leaves
// the live target untouched.
func (m *MercuryIPS) SetTarget(c fieldvec.Component, value float64) error {
	candidate := m.target.With(c, value)
	if !m.admissible(candidate) {
		return ValidationError{
			Op:     "set target",
			Reason: fmt.Sprintf("cannot set %s target to %g, that would violate the field limits", c, value),
		}
	}
	m.target = candidate
	return nil
}

func (m *MercuryIPS) admissible(v fieldvec.Vector) bool {
	if m.fieldLimits == nil {
		return true
	}
	return m.fieldLimits(v.X, v.Y, v.Z)
}

// StageTarget writes the staged target vector to the three axes' field set
// points.  It does not start a ramp; follow with SetRampStatusAll(ToSet).
func (m *MercuryIPS) StageTarget() error {
	t := m.target
	if err := m.GRPX.SetFieldTarget(t.X); err != nil {
		return err
	}
	if err := m.GRPY.SetFieldTarget(t.Y); err != nil {
		return err
	}
	return m.GRPZ.SetFieldTarget(t.Z)
}

// SetRampStatusAll sets the ramp status on all three axes, stopping at the
// first rejection
func (m *MercuryIPS) SetRampStatusAll(rs RampStatus) error {
	for _, psu := range m.Axes() {
		if err := psu.SetRampStatus(rs); err != nil {
			return err
		}
	}
	return nil
}
