// Package particle implements point masses with a lifetime and the bounded
// emitter that spawns them.
package particle

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/integrators"
	"github.com/san-kum/clothsim/internal/render"
)

// ErrNoState is returned by operations on a particle that has no dynamics
// state attached yet.
var ErrNoState = errors.New("particle: no dynamics state attached")

// Immortal is a lifetime that never runs out.
var Immortal = math.Inf(1)

// Particle is a point mass with a lifetime, a pin flag and an exclusively
// owned dynamics state. The state may be nil until one is assigned.
type Particle struct {
	state      *dynamo.State
	integrator dynamo.Integrator

	mass          float64
	secondsToLive float64
	pinned        bool

	shape  render.Shape
	radius float64
}

type Option func(*Particle)

// WithIntegrator fixes the stepping strategy used by StepAndAge.
func WithIntegrator(integ dynamo.Integrator) Option {
	return func(p *Particle) { p.integrator = integ }
}

func New(shape render.Shape, mass, secondsToLive, radius float64, opts ...Option) *Particle {
	p := &Particle{
		integrator:    integrators.NewEuler(),
		mass:          mass,
		secondsToLive: secondsToLive,
		shape:         shape,
		radius:        radius,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the attached state, or nil.
func (p *Particle) State() *dynamo.State { return p.state }

// SetState attaches s; the particle owns it from now on.
func (p *Particle) SetState(s *dynamo.State) { p.state = s }

func (p *Particle) Mass() float64          { return p.mass }
func (p *Particle) Radius() float64        { return p.radius }
func (p *Particle) Shape() render.Shape    { return p.shape }
func (p *Particle) SecondsToLive() float64 { return p.secondsToLive }

func (p *Particle) IsExpired() bool { return p.secondsToLive <= 0 }

// SetExpired kills the particle or revives it with one second to live.
func (p *Particle) SetExpired(expired bool) {
	if expired {
		p.secondsToLive = -1
	} else {
		p.secondsToLive = 1
	}
}

func (p *Particle) IsPinned() bool        { return p.pinned }
func (p *Particle) SetPinned(pinned bool) { p.pinned = pinned }
func (p *Particle) TogglePinned()         { p.pinned = !p.pinned }

func (p *Particle) Position() (mgl64.Vec3, error) {
	if p.state == nil {
		return mgl64.Vec3{}, ErrNoState
	}
	return p.state.Position(), nil
}

func (p *Particle) SetPosition(pos mgl64.Vec3) error {
	if p.state == nil {
		return ErrNoState
	}
	p.state.SetPosition(pos)
	return nil
}

func (p *Particle) Translate(offset mgl64.Vec3) error {
	if p.state == nil {
		return ErrNoState
	}
	p.state.Translate(offset)
	return nil
}

func (p *Particle) Velocity() (mgl64.Vec3, error) {
	if p.state == nil {
		return mgl64.Vec3{}, ErrNoState
	}
	return p.state.Velocity(), nil
}

func (p *Particle) SetVelocity(vel mgl64.Vec3) error {
	if p.state == nil {
		return ErrNoState
	}
	p.state.SetVelocity(vel)
	return nil
}

func (p *Particle) AddForce(f dynamo.Force) error {
	if p.state == nil {
		return ErrNoState
	}
	p.state.AddForce(f)
	return nil
}

func (p *Particle) Forces() ([]dynamo.Force, error) {
	if p.state == nil {
		return nil, ErrNoState
	}
	return p.state.Forces(), nil
}

// CloneForcesFrom deep-copies src's forces into p, replacing p's own.
func (p *Particle) CloneForcesFrom(src *Particle) error {
	if p.state == nil || src == nil || src.state == nil {
		return ErrNoState
	}
	p.state.CloneForcesFrom(src.state)
	return nil
}

// StepAndAge integrates the particle by dt unless it is pinned, then ages
// it by dt. The particle ages even when the step fails. Expired particles
// are left untouched.
func (p *Particle) StepAndAge(dt float64) error {
	if p.IsExpired() {
		return nil
	}
	var err error
	if !p.pinned {
		if p.state == nil {
			err = ErrNoState
		} else {
			err = p.integrator.Step(p.state, p.mass, dt)
		}
	}
	p.secondsToLive -= dt
	return err
}

// Render draws a marker for a live particle with a state.
func (p *Particle) Render(r render.Renderer) {
	if p.IsExpired() || p.state == nil {
		return
	}
	r.DrawParticle(p.state.Position(), p.radius, p.shape)
}
