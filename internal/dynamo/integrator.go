package dynamo

// Integrator advances a State by dt for a body of the given mass. The
// caller picks the strategy per call; the State does not remember it.
type Integrator interface {
	Step(s *State, mass, dt float64) error
}
