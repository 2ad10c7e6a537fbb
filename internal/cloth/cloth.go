// Package cloth implements a mass-spring cloth relaxed by position-based
// constraints.
//
// Particles live in a row-major arena and constraints refer to them by
// index. Each Update integrates every free particle by a fixed
// micro-timestep and then runs a fixed number of Gauss-Seidel passes over
// the constraints in a deterministic order.
package cloth

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/integrators"
	"github.com/san-kum/clothsim/internal/particle"
	"github.com/san-kum/clothsim/internal/render"
)

var (
	ErrInvalidDimensions = errors.New("cloth: rows and cols must be at least 1")
	ErrInvalidDistance   = errors.New("cloth: rest distance must be positive")
	ErrInvalidIterations = errors.New("cloth: solver iterations must be at least 1")

	// ErrUnstableSolver is returned when stiffness*fixedStep falls outside
	// (0, 1]; past 1 a single correction overshoots the rest length.
	ErrUnstableSolver = errors.New("cloth: stiffness times fixed step must lie in (0, 1]")
)

const (
	DefaultFixedStep  = 0.001
	DefaultStiffness  = 100.0
	DefaultIterations = 30
)

// Config describes a cloth. Origin is the top-left corner; rows hang down
// along -Z and columns run along +X.
type Config struct {
	Origin mgl64.Vec3
	Rows   int
	Cols   int

	BaseDistance float64
	ShearRatio   float64 // <= 0 disables shear constraints
	BendRatio    float64 // <= 0 disables bend constraints

	Iterations int
	Stiffness  float64
	FixedStep  float64

	InitialVelocity mgl64.Vec3

	ParticleMass   float64
	ParticleRadius float64
	ParticleShape  render.Shape

	// Forces are copied onto every particle. DefaultConfig sets standard
	// gravity.
	Forces []dynamo.Force

	// Integrator defaults to semi-implicit Euler.
	Integrator dynamo.Integrator
}

func DefaultConfig() Config {
	return Config{
		Rows:           10,
		Cols:           10,
		BaseDistance:   0.1,
		ShearRatio:     math.Sqrt2,
		BendRatio:      2,
		Iterations:     DefaultIterations,
		Stiffness:      DefaultStiffness,
		FixedStep:      DefaultFixedStep,
		ParticleMass:   1,
		ParticleRadius: 0.01,
		ParticleShape:  render.ShapeSphere,
		Forces:         []dynamo.Force{dynamo.NewGravity()},
	}
}

func (c Config) validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return fmt.Errorf("%w (got %dx%d)", ErrInvalidDimensions, c.Rows, c.Cols)
	}
	if !(c.BaseDistance > 0) {
		return fmt.Errorf("%w (got %g)", ErrInvalidDistance, c.BaseDistance)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidIterations, c.Iterations)
	}
	if k := c.Stiffness * c.FixedStep; !(k > 0 && k <= 1) || c.FixedStep <= 0 {
		return fmt.Errorf("%w (stiffness %g, step %g)", ErrUnstableSolver, c.Stiffness, c.FixedStep)
	}
	if !(c.ParticleMass > 0) {
		return fmt.Errorf("cloth: %w (got %g)", dynamo.ErrNonPositiveMass, c.ParticleMass)
	}
	return nil
}

// ResidualObserver is told the squared constraint error of every solver
// pass.
type ResidualObserver interface {
	OnResidual(iteration int, residual float64)
}

// ResidualFunc adapts a function to ResidualObserver.
type ResidualFunc func(iteration int, residual float64)

func (f ResidualFunc) OnResidual(iteration int, residual float64) { f(iteration, residual) }

type Cloth struct {
	cfg Config

	particles   []*particle.Particle
	constraints []Constraint

	originalTopLeft mgl64.Vec3
	currentTopLeft  mgl64.Vec3

	observers []ResidualObserver
}

// New lays out the particle grid, links it and pins the two top corners.
func New(cfg Config) (*Cloth, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Integrator == nil {
		cfg.Integrator = integrators.NewEuler()
	}

	cl := &Cloth{
		cfg:             cfg,
		particles:       make([]*particle.Particle, cfg.Rows*cfg.Cols),
		originalTopLeft: cfg.Origin,
		currentTopLeft:  cfg.Origin,
	}
	cl.assignParticleStates()
	cl.constraints = buildConstraints(cfg.Rows, cfg.Cols, map[ConstraintKind]float64{
		Stretch: cfg.BaseDistance,
		Shear:   cfg.BaseDistance * cfg.ShearRatio,
		Bend:    cfg.BaseDistance * cfg.BendRatio,
	})

	cl.particles[cl.index(0, 0)].SetPinned(true)
	cl.particles[cl.index(0, cfg.Cols-1)].SetPinned(true)
	return cl, nil
}

func (cl *Cloth) assignParticleStates() {
	base := cl.cfg.BaseDistance
	for r := 0; r < cl.cfg.Rows; r++ {
		for c := 0; c < cl.cfg.Cols; c++ {
			p := particle.New(cl.cfg.ParticleShape, cl.cfg.ParticleMass, particle.Immortal,
				cl.cfg.ParticleRadius, particle.WithIntegrator(cl.cfg.Integrator))

			start := cl.currentTopLeft.Add(mgl64.Vec3{float64(c) * base, 0, -float64(r) * base})
			s := dynamo.NewState(start, cl.cfg.InitialVelocity)
			for _, f := range cl.cfg.Forces {
				s.AddForce(f)
			}
			p.SetState(s)
			cl.particles[cl.index(r, c)] = p
		}
	}
}

func (cl *Cloth) index(r, c int) int { return r*cl.cfg.Cols + c }

func (cl *Cloth) Rows() int      { return cl.cfg.Rows }
func (cl *Cloth) Cols() int      { return cl.cfg.Cols }
func (cl *Cloth) Config() Config { return cl.cfg }

// GetParticle returns the particle at row r (0 is the top) and column c.
func (cl *Cloth) GetParticle(r, c int) (*particle.Particle, bool) {
	if r < 0 || r >= cl.cfg.Rows || c < 0 || c >= cl.cfg.Cols {
		return nil, false
	}
	return cl.particles[cl.index(r, c)], true
}

// Particles returns the arena in row-major order.
func (cl *Cloth) Particles() []*particle.Particle {
	out := make([]*particle.Particle, len(cl.particles))
	copy(out, cl.particles)
	return out
}

// Constraints returns a copy of the live constraints in solver order.
func (cl *Cloth) Constraints() []Constraint {
	out := make([]Constraint, len(cl.constraints))
	copy(out, cl.constraints)
	return out
}

func (cl *Cloth) AddResidualObserver(o ResidualObserver) {
	cl.observers = append(cl.observers, o)
}

// Update advances the cloth by one fixed step and relaxes it. The frame
// delta is ignored; the cloth always moves by the configured fixed step.
// It returns the residual of every solver pass.
func (cl *Cloth) Update(_ float64) ([]float64, error) {
	step := cl.cfg.FixedStep

	var errs []error
	for i, p := range cl.particles {
		if p.IsPinned() || p.IsExpired() {
			continue
		}
		if err := p.StepAndAge(step); err != nil {
			errs = append(errs, fmt.Errorf("particle %d: %w", i, err))
		}
	}

	cl.dropDeadConstraints()
	return cl.SatisfyConstraints(), errors.Join(errs...)
}

func (cl *Cloth) dropDeadConstraints() {
	kept := cl.constraints[:0]
	for _, cc := range cl.constraints {
		if cl.particles[cc.P1].IsExpired() && cl.particles[cc.P2].IsExpired() {
			continue
		}
		kept = append(kept, cc)
	}
	cl.constraints = kept
}

// SatisfyConstraints runs the configured number of relaxation passes and
// returns, per pass, the sum of squared rest-length errors measured before
// each correction.
func (cl *Cloth) SatisfyConstraints() []float64 {
	residuals := make([]float64, cl.cfg.Iterations)
	gain := cl.cfg.Stiffness * cl.cfg.FixedStep

	for it := 0; it < cl.cfg.Iterations; it++ {
		var norm float64
		for _, cc := range cl.constraints {
			p1, p2 := cl.particles[cc.P1], cl.particles[cc.P2]
			pos1, pos2 := p1.State().Position(), p2.State().Position()

			disp := pos2.Sub(pos1)
			if disp == (mgl64.Vec3{}) {
				continue
			}
			dist := disp.Len()
			diff := cc.RestDistance - dist
			norm += diff * diff

			half := disp.Mul(gain * 0.5 * (1 - cc.RestDistance/dist))
			fixed1, fixed2 := anchored(p1), anchored(p2)
			if !fixed1 {
				p1.State().Translate(half.Mul(scaleFor(fixed2)))
			}
			if !fixed2 {
				p2.State().Translate(half.Mul(-scaleFor(fixed1)))
			}
		}
		residuals[it] = norm
		for _, o := range cl.observers {
			o.OnResidual(it, norm)
		}
	}
	return residuals
}

// anchored reports whether the solver must leave p where it is. An expired
// particle keeps its last position and still pulls on its live neighbours.
func anchored(p *particle.Particle) bool {
	return p.IsPinned() || p.IsExpired()
}

// scaleFor makes a free endpoint cover the whole correction when its
// partner is anchored.
func scaleFor(partnerAnchored bool) float64 {
	if partnerAnchored {
		return 2
	}
	return 1
}

// MoveClothByOffset drags the whole top row, pinned or not, by offset.
func (cl *Cloth) MoveClothByOffset(offset mgl64.Vec3) {
	for c := 0; c < cl.cfg.Cols; c++ {
		cl.particles[cl.index(0, c)].State().Translate(offset)
	}
	cl.currentTopLeft = cl.particles[cl.index(0, 0)].State().Position()
}

func (cl *Cloth) CurrentTopLeft() mgl64.Vec3  { return cl.currentTopLeft }
func (cl *Cloth) OriginalTopLeft() mgl64.Vec3 { return cl.originalTopLeft }

// SetTopLeftPosition overrides the tracked top-left corner without moving
// any particle.
func (cl *Cloth) SetTopLeftPosition(pos mgl64.Vec3) { cl.currentTopLeft = pos }

// TopRight is where the top-right corner sits when the top row is
// straight and unstretched.
func (cl *Cloth) TopRight() mgl64.Vec3 {
	return cl.currentTopLeft.Add(mgl64.Vec3{float64(cl.cfg.Cols-1) * cl.cfg.BaseDistance, 0, 0})
}

// SetDistancesForConstraints changes the rest distance of every constraint
// of kind and returns how many were changed.
func (cl *Cloth) SetDistancesForConstraints(kind ConstraintKind, rest float64) (int, error) {
	if !(rest > 0) {
		return 0, fmt.Errorf("%w (got %g)", ErrInvalidDistance, rest)
	}
	n := 0
	for i := range cl.constraints {
		if cl.constraints[i].Kind == kind {
			cl.constraints[i].RestDistance = rest
			n++
		}
	}
	return n, nil
}

// Puncture expires every live particle within radius of center, as if hit
// by a projectile, and returns how many were hit. Constraints between two
// expired particles go away on the next Update.
func (cl *Cloth) Puncture(center mgl64.Vec3, radius float64) int {
	hit := 0
	for _, p := range cl.particles {
		if p.IsExpired() {
			continue
		}
		if p.State().Position().Sub(center).Len() <= radius {
			p.SetExpired(true)
			hit++
		}
	}
	return hit
}

// Alive counts the particles that have not been punctured.
func (cl *Cloth) Alive() int {
	n := 0
	for _, p := range cl.particles {
		if !p.IsExpired() {
			n++
		}
	}
	return n
}
