package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// Euler is the semi-implicit forward Euler step:
//
//	v' = v + a*dt
//	p' = p + v'*dt
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(s *dynamo.State, mass, dt float64) error {
	acc, err := s.Acceleration(mass)
	if err != nil {
		return &dynamo.StepError{Mass: mass, Dt: dt, Wrapped: err}
	}

	vel := s.Velocity().Add(acc.Mul(dt))
	pos := s.Position().Add(vel.Mul(dt))

	return commit(s, pos, vel, mass, dt)
}

// commit writes pos and vel only when both are finite.
func commit(s *dynamo.State, pos, vel mgl64.Vec3, mass, dt float64) error {
	if !dynamo.IsFinite(pos) || !dynamo.IsFinite(vel) {
		return &dynamo.StepError{Mass: mass, Dt: dt, Wrapped: dynamo.ErrInvalidState}
	}
	s.SetPosition(pos)
	s.SetVelocity(vel)
	return nil
}
