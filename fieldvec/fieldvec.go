// Package fieldvec provides a 3-component magnetic field vector with
// matched Cartesian and spherical views.  Vectors are plain values;
// mutation happens by deriving a new vector, so a caller can stage a
// candidate, validate it, and commit it with a single assignment.
package fieldvec

import (
	"fmt"
	"math"
)

// Component names a settable coordinate of a Vector.
type Component string

// The seven components.  Rho is the in-plane (xy) radial component.
const (
	X     Component = "x"
	Y     Component = "y"
	Z     Component = "z"
	R     Component = "r"
	Theta Component = "theta"
	Phi   Component = "phi"
	Rho   Component = "rho"
)

// Components lists every component in canonical order.
var Components = []Component{X, Y, Z, R, Theta, Phi, Rho}

// ParseComponent validates a component name
func ParseComponent(s string) (Component, error) {
	for _, c := range Components {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown vector component %q", s)
}

// Vector is a field vector in tesla, stored Cartesian.
type Vector struct {
	X float64
	Y float64
	Z float64
}

// R returns the magnitude
func (v Vector) R() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Rho returns the in-plane radial component
func (v Vector) Rho() float64 {
	return math.Hypot(v.X, v.Y)
}

// Theta returns the polar angle in radians; 0 for the zero vector
func (v Vector) Theta() float64 {
	r := v.R()
	if r == 0 {
		return 0
	}
	return math.Acos(v.Z / r)
}

// Phi returns the azimuthal angle in radians; 0 on the z axis
func (v Vector) Phi() float64 {
	if v.X == 0 && v.Y == 0 {
		return 0
	}
	return math.Atan2(v.Y, v.X)
}

// Component returns the named component
func (v Vector) Component(c Component) float64 {
	switch c {
	case X:
		return v.X
	case Y:
		return v.Y
	case Z:
		return v.Z
	case R:
		return v.R()
	case Theta:
		return v.Theta()
	case Phi:
		return v.Phi()
	case Rho:
		return v.Rho()
	}
	panic("fieldvec: component queried not present in Vector")
}

// FromSpherical builds a vector from magnitude and angles in radians
func FromSpherical(r, theta, phi float64) Vector {
	return Vector{
		X: r * math.Sin(theta) * math.Cos(phi),
		Y: r * math.Sin(theta) * math.Sin(phi),
		Z: r * math.Cos(theta),
	}
}

// With returns a copy of v with the single named component replaced,
// recomputing the full vector so the views stay consistent.  Setting a
// spherical component keeps the other two spherical components fixed;
// setting rho keeps phi and z fixed.
func (v Vector) With(c Component, value float64) Vector {
	switch c {
	case X:
		v.X = value
		return v
	case Y:
		v.Y = value
		return v
	case Z:
		v.Z = value
		return v
	case R:
		return FromSpherical(value, v.Theta(), v.Phi())
	case Theta:
		return FromSpherical(v.R(), value, v.Phi())
	case Phi:
		return FromSpherical(v.R(), v.Theta(), value)
	case Rho:
		phi := v.Phi()
		v.X = value * math.Cos(phi)
		v.Y = value * math.Sin(phi)
		return v
	}
	panic("fieldvec: component set not present in Vector")
}

func (v Vector) String() string {
	return fmt.Sprintf("(%g, %g, %g) T", v.X, v.Y, v.Z)
}
