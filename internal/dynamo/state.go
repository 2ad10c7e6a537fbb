package dynamo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// State is the linear dynamics state of one point mass: position, velocity
// and the forces acting on it, in evaluation order.
type State struct {
	position mgl64.Vec3
	velocity mgl64.Vec3
	forces   []Force
}

func NewState(position, velocity mgl64.Vec3) *State {
	return &State{position: position, velocity: velocity}
}

func (s *State) Position() mgl64.Vec3 { return s.position }
func (s *State) Velocity() mgl64.Vec3 { return s.velocity }

func (s *State) SetPosition(p mgl64.Vec3) { s.position = p }
func (s *State) SetVelocity(v mgl64.Vec3) { s.velocity = v }

// Translate moves the position by offset without touching velocity.
func (s *State) Translate(offset mgl64.Vec3) { s.position = s.position.Add(offset) }

func (s *State) AddForce(f Force) { s.forces = append(s.forces, f) }

// Forces returns a copy of the attached forces.
func (s *State) Forces() []Force {
	out := make([]Force, len(s.forces))
	copy(out, s.forces)
	return out
}

// CloneForcesFrom replaces the forces of s with a copy of src's forces.
func (s *State) CloneForcesFrom(src *State) {
	if src == nil {
		s.forces = nil
		return
	}
	s.forces = src.Forces()
}

// Clone returns an independent copy of s, forces included.
func (s *State) Clone() *State {
	return &State{position: s.position, velocity: s.velocity, forces: s.Forces()}
}

// NetForce sums every attached force evaluated against the current state.
func (s *State) NetForce(mass float64) mgl64.Vec3 {
	var net mgl64.Vec3
	for _, f := range s.forces {
		net = net.Add(f.Compute(s, mass))
	}
	return net
}

// Acceleration returns NetForce/mass. Non-positive mass is a precondition
// violation reported as ErrNonPositiveMass.
func (s *State) Acceleration(mass float64) (mgl64.Vec3, error) {
	if mass <= 0 || math.IsNaN(mass) {
		return mgl64.Vec3{}, ErrNonPositiveMass
	}
	return s.NetForce(mass).Mul(1 / mass), nil
}

// IsValid reports whether position and velocity are finite.
func (s *State) IsValid() bool {
	return IsFinite(s.position) && IsFinite(s.velocity)
}

// IsFinite reports whether every component of v is neither NaN nor Inf.
func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
