package integrators

import "github.com/san-kum/clothsim/internal/dynamo"

// Verlet is velocity Verlet over the same net-force computation as Euler.
// The second force evaluation sees the advanced position and the
// pre-step velocity.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(s *dynamo.State, mass, dt float64) error {
	acc, err := s.Acceleration(mass)
	if err != nil {
		return &dynamo.StepError{Mass: mass, Dt: dt, Wrapped: err}
	}

	pos := s.Position().Add(s.Velocity().Mul(dt)).Add(acc.Mul(0.5 * dt * dt))

	probe := s.Clone()
	probe.SetPosition(pos)
	accNew, err := probe.Acceleration(mass)
	if err != nil {
		return &dynamo.StepError{Mass: mass, Dt: dt, Wrapped: err}
	}

	vel := s.Velocity().Add(acc.Add(accNew).Mul(0.5 * dt))

	return commit(s, pos, vel, mass, dt)
}
