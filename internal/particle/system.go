package particle

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/audio"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/render"
)

// ErrEmitterCapacity is returned when a system would have to emit more
// particles at once than it may keep alive.
var ErrEmitterCapacity = errors.New("particle: particles emitted at once exceeds max particles emitted")

// World axes used to turn emission angles into directions.
var (
	worldNorth = mgl64.Vec3{0, 1, 0}
	worldLeft  = mgl64.Vec3{-1, 0, 0}
)

// SoundPlayer triggers a previously resolved sound.
type SoundPlayer interface {
	Play(h audio.Handle)
}

// SystemConfig describes an emitter. Polar angles are measured down from
// world up, azimuth angles to the left of world north, both in degrees.
type SystemConfig struct {
	EmitterPosition mgl64.Vec3

	Shape  render.Shape
	Radius float64
	Mass   float64

	MuzzleSpeed       float64
	MinPolarDegrees   float64
	MaxPolarDegrees   float64
	MinAzimuthDegrees float64
	MaxAzimuthDegrees float64

	SecondsBetweenEmits float64
	SecondsToLive       float64
	MaxParticles        int
	EmittedAtOnce       int

	Sound audio.Handle
}

// System emits particles from a template on a fixed cadence and keeps at
// most MaxParticles of them alive, evicting the oldest first.
type System struct {
	cfg        SystemConfig
	template   *Particle
	live       []*Particle
	sinceEmit  float64
	emitted    int
	rng        *rand.Rand
	player     SoundPlayer
	integrator dynamo.Integrator
}

type SystemOption func(*System)

func WithRand(rng *rand.Rand) SystemOption {
	return func(s *System) { s.rng = rng }
}

func WithSoundPlayer(p SoundPlayer) SystemOption {
	return func(s *System) { s.player = p }
}

// WithParticleIntegrator sets the strategy every emitted particle steps with.
func WithParticleIntegrator(integ dynamo.Integrator) SystemOption {
	return func(s *System) { s.integrator = integ }
}

// NewSystem validates cfg and builds the emitter. A system that could
// never make room for a full emission is refused.
func NewSystem(cfg SystemConfig, opts ...SystemOption) (*System, error) {
	if cfg.EmittedAtOnce > cfg.MaxParticles {
		return nil, fmt.Errorf("%w (%d > %d)", ErrEmitterCapacity, cfg.EmittedAtOnce, cfg.MaxParticles)
	}
	if cfg.EmittedAtOnce < 0 || cfg.MaxParticles < 0 {
		return nil, fmt.Errorf("particle: negative emitter capacity (%d, %d)", cfg.EmittedAtOnce, cfg.MaxParticles)
	}
	if !(cfg.Mass > 0) {
		return nil, fmt.Errorf("particle: emitter %w (got %g)", dynamo.ErrNonPositiveMass, cfg.Mass)
	}

	s := &System{
		cfg:  cfg,
		live: make([]*Particle, 0, cfg.MaxParticles),
		rng:  rand.New(rand.NewSource(1)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.template = New(cfg.Shape, cfg.Mass, cfg.SecondsToLive, cfg.Radius)
	s.template.SetState(dynamo.NewState(cfg.EmitterPosition, mgl64.Vec3{}))
	return s, nil
}

func (s *System) Config() SystemConfig { return s.cfg }

// AddForce attaches f to the template; particles emitted afterwards get a
// copy of it.
func (s *System) AddForce(f dynamo.Force) {
	_ = s.template.AddForce(f)
}

func (s *System) SecondsUntilNextEmit() float64 {
	return s.cfg.SecondsBetweenEmits - s.sinceEmit
}

// Live returns the number of particles currently held.
func (s *System) Live() int { return len(s.live) }

// Emitted returns the number of particles emitted since creation.
func (s *System) Emitted() int { return s.emitted }

// Particles returns the held particles, oldest first.
func (s *System) Particles() []*Particle {
	out := make([]*Particle, len(s.live))
	copy(out, s.live)
	return out
}

// Update emits when the cadence has elapsed, then steps and ages every held
// particle.
func (s *System) Update(dt float64) error {
	s.emitParticles(dt)
	return s.stepAndAgeParticles(dt)
}

// Emit spawns one batch immediately and restarts the cadence.
func (s *System) Emit() {
	s.sinceEmit = 0
	s.emitBatch()
}

func (s *System) emitParticles(dt float64) {
	s.sinceEmit += dt
	if s.sinceEmit < s.cfg.SecondsBetweenEmits {
		return
	}
	s.Emit()
}

func (s *System) emitBatch() {
	n := s.cfg.EmittedAtOnce
	if n == 0 {
		return
	}

	// make room before inserting so the cap holds at every observation
	if over := len(s.live) + n - s.cfg.MaxParticles; over > 0 {
		for i := 0; i < over; i++ {
			s.live[i] = nil
		}
		s.live = append(s.live[:0], s.live[over:]...)
	}

	for i := 0; i < n; i++ {
		s.live = append(s.live, s.spawn())
	}
	s.emitted += n

	if s.player != nil {
		s.player.Play(s.cfg.Sound)
	}
}

func (s *System) spawn() *Particle {
	var opts []Option
	if s.integrator != nil {
		opts = append(opts, WithIntegrator(s.integrator))
	}
	p := New(s.cfg.Shape, s.cfg.Mass, s.cfg.SecondsToLive, s.cfg.Radius, opts...)
	vel := s.sampleDirection().Mul(s.cfg.MuzzleSpeed)
	p.SetState(dynamo.NewState(s.cfg.EmitterPosition, vel))
	_ = p.CloneForcesFrom(s.template)
	return p
}

// sampleDirection picks a direction uniformly over the area of the
// spherical patch bounded by the polar and azimuth ranges.
func (s *System) sampleDirection() mgl64.Vec3 {
	cosLo := math.Cos(mgl64.DegToRad(s.cfg.MinPolarDegrees))
	cosHi := math.Cos(mgl64.DegToRad(s.cfg.MaxPolarDegrees))
	cosTheta := cosHi + s.rng.Float64()*(cosLo-cosHi)
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))

	phi := mgl64.DegToRad(s.cfg.MinAzimuthDegrees +
		s.rng.Float64()*(s.cfg.MaxAzimuthDegrees-s.cfg.MinAzimuthDegrees))
	sinPhi, cosPhi := math.Sincos(phi)

	horizontal := worldNorth.Mul(cosPhi).Add(worldLeft.Mul(sinPhi))
	return horizontal.Mul(sinTheta).Add(dynamo.Up.Mul(cosTheta))
}

func (s *System) stepAndAgeParticles(dt float64) error {
	var errs []error
	for _, p := range s.live {
		if err := p.StepAndAge(dt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render draws every held particle that has not expired.
func (s *System) Render(r render.Renderer) {
	for _, p := range s.live {
		p.Render(r)
	}
}

// RenderThenExpire draws every live particle, then drops the expired ones.
func (s *System) RenderThenExpire(r render.Renderer) {
	if r != nil {
		s.Render(r)
	}

	kept := s.live[:0]
	for _, p := range s.live {
		if !p.IsExpired() {
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(s.live); i++ {
		s.live[i] = nil
	}
	s.live = kept
}
