package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/clothsim/internal/audio"
	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/integrators"
	"github.com/san-kum/clothsim/internal/particle"
	"github.com/san-kum/clothsim/internal/render"
	"github.com/san-kum/clothsim/internal/sim"
)

const (
	DefaultDt         = 1.0 / 60
	DefaultFrames     = 600
	DefaultIterations = 30
	DefaultBase       = 0.1
	DefaultRows       = 12
	DefaultCols       = 12
)

var ErrEmptyScene = errors.New("config: scene has neither a cloth nor an emitter")

// Vec3 is a vector written as a flow sequence, e.g. [0, 0, 1].
type Vec3 [3]float64

func (v Vec3) Vec() mgl64.Vec3 { return mgl64.Vec3(v) }
func (v Vec3) IsZero() bool    { return v == Vec3{} }

type Config struct {
	Name       string          `yaml:"name,omitempty"`
	Integrator string          `yaml:"integrator"`
	Dt         float64         `yaml:"dt"`
	Frames     int             `yaml:"frames"`
	Seed       int64           `yaml:"seed"`
	Cloth      *ClothConfig    `yaml:"cloth,omitempty"`
	Emitters   []EmitterConfig `yaml:"emitters,omitempty"`
}

type ClothConfig struct {
	Origin       Vec3          `yaml:"origin,flow"`
	Rows         int           `yaml:"rows"`
	Cols         int           `yaml:"cols"`
	BaseDistance float64       `yaml:"base_distance"`
	ShearRatio   float64       `yaml:"shear_ratio"`
	BendRatio    float64       `yaml:"bend_ratio"`
	Iterations   int           `yaml:"iterations"`
	Stiffness    float64       `yaml:"stiffness"`
	FixedStep    float64       `yaml:"fixed_step"`
	Velocity     Vec3          `yaml:"velocity,flow"`
	Mass         float64       `yaml:"mass"`
	Radius       float64       `yaml:"radius"`
	Shape        string        `yaml:"shape"`
	Forces       []ForceConfig `yaml:"forces,omitempty"`
}

type EmitterConfig struct {
	Position     Vec3          `yaml:"position,flow"`
	Shape        string        `yaml:"shape"`
	Radius       float64       `yaml:"radius"`
	Mass         float64       `yaml:"mass"`
	MuzzleSpeed  float64       `yaml:"muzzle_speed"`
	MinPolar     float64       `yaml:"min_polar"`
	MaxPolar     float64       `yaml:"max_polar"`
	MinAzimuth   float64       `yaml:"min_azimuth"`
	MaxAzimuth   float64       `yaml:"max_azimuth"`
	Interval     float64       `yaml:"interval"`
	Lifetime     float64       `yaml:"lifetime"`
	MaxParticles int           `yaml:"max_particles"`
	AtOnce       int           `yaml:"at_once"`
	Sound        string        `yaml:"sound,omitempty"`
	Forces       []ForceConfig `yaml:"forces,omitempty"`
}

// ForceConfig is the YAML form of a dynamo.Force. Kind takes the names of
// dynamo.ForceKind. A zero direction on gravity or debris means -Up.
type ForceConfig struct {
	Kind         string  `yaml:"kind"`
	Magnitude    float64 `yaml:"magnitude,omitempty"`
	Direction    Vec3    `yaml:"direction,flow,omitempty"`
	GroundHeight float64 `yaml:"ground_height,omitempty"`
	Dampedness   float64 `yaml:"dampedness,omitempty"`
	Stiffness    float64 `yaml:"stiffness,omitempty"`
	Anchor       Vec3    `yaml:"anchor,flow,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: "euler",
		Dt:         DefaultDt,
		Frames:     DefaultFrames,
		Seed:       1,
		Cloth:      DefaultCloth(),
	}
}

func DefaultCloth() *ClothConfig {
	return &ClothConfig{
		Origin:       Vec3{-0.55, 0, 1},
		Rows:         DefaultRows,
		Cols:         DefaultCols,
		BaseDistance: DefaultBase,
		ShearRatio:   math.Sqrt2,
		BendRatio:    2,
		Iterations:   DefaultIterations,
		Stiffness:    cloth.DefaultStiffness,
		FixedStep:    cloth.DefaultFixedStep,
		Mass:         1,
		Radius:       0.01,
		Shape:        render.ShapeSphere.String(),
		Forces:       []ForceConfig{{Kind: "gravity", Magnitude: dynamo.StandardGravity}},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a scene over the defaults. A document without a cloth
// section describes an emitter-only scene.
func Parse(data []byte) (*Config, error) {
	var probe struct {
		Cloth *yaml.Node `yaml:"cloth"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if probe.Cloth == nil {
		cfg.Cloth = nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be tweaked freely.
func (c *Config) Clone() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("config: marshal clone: %v", err))
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("config: unmarshal clone: %v", err))
	}
	return out
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %f", c.Dt)
	}
	if c.Frames <= 0 {
		return fmt.Errorf("config: frames must be positive, got %d", c.Frames)
	}
	if _, err := integrators.New(c.Integrator); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Cloth == nil && len(c.Emitters) == 0 {
		return ErrEmptyScene
	}
	return nil
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{Dt: c.Dt, Frames: c.Frames, ValidateState: true, Seed: c.Seed}
}

// ToForce builds the force described by f.
func (f ForceConfig) ToForce() (dynamo.Force, error) {
	kind, err := dynamo.ParseForceKind(f.Kind)
	if err != nil {
		return dynamo.Force{}, err
	}
	dir := f.Direction.Vec()
	switch kind {
	case dynamo.ForceGravity:
		if dir == (mgl64.Vec3{}) {
			dir = dynamo.Up.Mul(-1)
		}
		return dynamo.NewGravityAlong(f.Magnitude, dir), nil
	case dynamo.ForceDebris:
		if dir == (mgl64.Vec3{}) {
			dir = dynamo.Up.Mul(-1)
		}
		return dynamo.NewDebris(f.Magnitude, f.GroundHeight, dir), nil
	case dynamo.ForceConstantWind:
		return dynamo.NewConstantWind(f.Magnitude, dir, f.Dampedness), nil
	case dynamo.ForceWormhole:
		return dynamo.NewWormhole(f.Magnitude, f.Dampedness), nil
	case dynamo.ForceSpring:
		return dynamo.NewSpring(f.Stiffness, f.Dampedness, f.Anchor.Vec()), nil
	}
	return dynamo.Force{}, fmt.Errorf("%w: %v", dynamo.ErrUnknownForce, kind)
}

func buildForces(fcs []ForceConfig) ([]dynamo.Force, error) {
	out := make([]dynamo.Force, 0, len(fcs))
	for i, fc := range fcs {
		f, err := fc.ToForce()
		if err != nil {
			return nil, fmt.Errorf("force %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func parseShape(name string) (render.Shape, error) {
	switch name {
	case "", render.ShapeSphere.String():
		return render.ShapeSphere, nil
	case render.ShapeBox.String():
		return render.ShapeBox, nil
	default:
		return 0, fmt.Errorf("config: unknown shape %q", name)
	}
}

// BuildCloth turns the cloth section into a cloth, or returns nil when the
// scene has none.
func (c *Config) BuildCloth() (*cloth.Cloth, error) {
	if c.Cloth == nil {
		return nil, nil
	}
	cc := c.Cloth
	integ, err := integrators.New(c.Integrator)
	if err != nil {
		return nil, err
	}
	shape, err := parseShape(cc.Shape)
	if err != nil {
		return nil, err
	}
	forces, err := buildForces(cc.Forces)
	if err != nil {
		return nil, fmt.Errorf("cloth: %w", err)
	}

	return cloth.New(cloth.Config{
		Origin:          cc.Origin.Vec(),
		Rows:            cc.Rows,
		Cols:            cc.Cols,
		BaseDistance:    cc.BaseDistance,
		ShearRatio:      cc.ShearRatio,
		BendRatio:       cc.BendRatio,
		Iterations:      cc.Iterations,
		Stiffness:       cc.Stiffness,
		FixedStep:       cc.FixedStep,
		InitialVelocity: cc.Velocity.Vec(),
		ParticleMass:    cc.Mass,
		ParticleRadius:  cc.Radius,
		ParticleShape:   shape,
		Forces:          forces,
		Integrator:      integ,
	})
}

// BuildEmitters builds one particle system per emitter section. Sounds are
// resolved through bank once; a nil bank silences every emitter.
func (c *Config) BuildEmitters(bank *audio.Bank, opts ...particle.SystemOption) ([]*particle.System, error) {
	integ, err := integrators.New(c.Integrator)
	if err != nil {
		return nil, err
	}

	systems := make([]*particle.System, 0, len(c.Emitters))
	for i, ec := range c.Emitters {
		shape, err := parseShape(ec.Shape)
		if err != nil {
			return nil, fmt.Errorf("emitter %d: %w", i, err)
		}
		sound := audio.NoSound
		if bank != nil {
			if sound, err = bank.Resolve(ec.Sound); err != nil {
				return nil, fmt.Errorf("emitter %d: sound: %w", i, err)
			}
		}
		forces, err := buildForces(ec.Forces)
		if err != nil {
			return nil, fmt.Errorf("emitter %d: %w", i, err)
		}

		sysOpts := append([]particle.SystemOption{particle.WithParticleIntegrator(integ)}, opts...)
		s, err := particle.NewSystem(particle.SystemConfig{
			EmitterPosition:     ec.Position.Vec(),
			Shape:               shape,
			Radius:              ec.Radius,
			Mass:                ec.Mass,
			MuzzleSpeed:         ec.MuzzleSpeed,
			MinPolarDegrees:     ec.MinPolar,
			MaxPolarDegrees:     ec.MaxPolar,
			MinAzimuthDegrees:   ec.MinAzimuth,
			MaxAzimuthDegrees:   ec.MaxAzimuth,
			SecondsBetweenEmits: ec.Interval,
			SecondsToLive:       ec.Lifetime,
			MaxParticles:        ec.MaxParticles,
			EmittedAtOnce:       ec.AtOnce,
			Sound:               sound,
		}, sysOpts...)
		if err != nil {
			return nil, fmt.Errorf("emitter %d: %w", i, err)
		}
		for _, f := range forces {
			s.AddForce(f)
		}
		systems = append(systems, s)
	}
	return systems, nil
}

// BuildWorld validates the scene and assembles its cloth and emitters.
func (c *Config) BuildWorld(bank *audio.Bank, opts ...particle.SystemOption) (*sim.World, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cl, err := c.BuildCloth()
	if err != nil {
		return nil, err
	}
	systems, err := c.BuildEmitters(bank, opts...)
	if err != nil {
		return nil, err
	}
	return sim.NewWorld(cl, systems...), nil
}
