// Package dynamo provides the point-mass primitives shared by the cloth
// solver and the particle emitter.
//
// The package defines:
//
//   - [Force]: closed set of force variants evaluated against a state
//   - [State]: position, velocity and the forces acting on one point mass
//   - [Integrator]: stepping strategy applied to a [State]
//
// Forces never mutate the state they are evaluated against, so the net
// force of a [State] is always computed from a single consistent snapshot.
//
// # Example
//
//	s := dynamo.NewState(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{})
//	s.AddForce(dynamo.NewGravity())
//	err := integrators.NewEuler().Step(s, 1.0, 0.01)
//
// # Thread Safety
//
// States are NOT thread-safe. All simulation runs on the caller's goroutine.
package dynamo
