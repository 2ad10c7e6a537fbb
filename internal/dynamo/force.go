package dynamo

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis. Gravity-like forces default to pulling along -Up.
var Up = mgl64.Vec3{0, 0, 1}

const (
	// StandardGravity is the default magnitude of Gravity and Debris forces.
	StandardGravity = 9.81

	// DebrisRestitution scales the Debris magnitude once a body sinks below
	// its ground height.
	DebrisRestitution = 0.5
)

// ForceKind tags the variant of a Force.
type ForceKind int

const (
	// ForceGravity is m*g along a fixed direction.
	ForceGravity ForceKind = iota
	// ForceDebris behaves like gravity above ground and pushes back, weaker,
	// once the body sinks below ground.
	ForceDebris
	// ForceConstantWind is -c*(v - w) with a fixed wind w.
	ForceConstantWind
	// ForceWormhole is -c*(v - w(pos)) where w points back to the origin and
	// grows with distance from it.
	ForceWormhole
	// ForceSpring is -c*v - k*x.
	ForceSpring
)

var forceKindNames = map[ForceKind]string{
	ForceGravity:      "gravity",
	ForceDebris:       "debris",
	ForceConstantWind: "wind",
	ForceWormhole:     "wormhole",
	ForceSpring:       "spring",
}

func (k ForceKind) String() string {
	if name, ok := forceKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ForceKind(%d)", int(k))
}

// ParseForceKind resolves the names produced by ForceKind.String.
func ParseForceKind(name string) (ForceKind, error) {
	for k, n := range forceKindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownForce, name)
}

// Force is a policy computing an instantaneous force from a state and a
// mass. It is a plain value: assigning it is a deep copy, so a force list
// cloned from a template never aliases the template.
type Force struct {
	Kind      ForceKind
	Magnitude float64
	Direction mgl64.Vec3

	GroundHeight float64    // debris
	Dampedness   float64    // "c" for wind, wormhole and spring
	Stiffness    float64    // "k" for spring
	Anchor       mgl64.Vec3 // spring rest point
}

// NewGravity returns standard gravity pulling along -Up.
func NewGravity() Force {
	return Force{Kind: ForceGravity, Magnitude: StandardGravity, Direction: Up.Mul(-1)}
}

// NewGravityAlong returns gravity with an explicit magnitude and direction.
func NewGravityAlong(magnitude float64, direction mgl64.Vec3) Force {
	return Force{Kind: ForceGravity, Magnitude: magnitude, Direction: direction}
}

// NewDebris returns a gravity-like force that responds to a ground plane at
// groundHeight, measured along -direction.
func NewDebris(magnitude, groundHeight float64, direction mgl64.Vec3) Force {
	return Force{Kind: ForceDebris, Magnitude: magnitude, Direction: direction, GroundHeight: groundHeight}
}

// NewConstantWind returns a drag toward a wind of magnitude along direction.
func NewConstantWind(magnitude float64, direction mgl64.Vec3, dampedness float64) Force {
	return Force{Kind: ForceConstantWind, Magnitude: magnitude, Direction: direction, Dampedness: dampedness}
}

// NewWormhole returns a drag toward a wind that pulls back to the origin.
func NewWormhole(magnitude float64, dampedness float64) Force {
	return Force{Kind: ForceWormhole, Magnitude: magnitude, Dampedness: dampedness}
}

// NewSpring returns a damped spring anchored at anchor.
func NewSpring(stiffness, dampedness float64, anchor mgl64.Vec3) Force {
	return Force{Kind: ForceSpring, Stiffness: stiffness, Dampedness: dampedness, Anchor: anchor}
}

// MagnitudeFor returns the magnitude of the force for s. Debris shrinks
// below ground and Wormhole grows with distance from the origin; every
// other kind returns the stored magnitude.
func (f Force) MagnitudeFor(s *State) float64 {
	switch f.Kind {
	case ForceDebris:
		depth := f.depthBelowGround(s)
		if depth <= 0 {
			return f.Magnitude
		}
		return f.Magnitude * DebrisRestitution * math.Exp(-depth)
	case ForceWormhole:
		return f.Magnitude * s.position.Len()
	default:
		return f.Magnitude
	}
}

// DirectionFor returns the direction of the force for s. Debris inverts
// below ground and Wormhole points back toward the origin.
func (f Force) DirectionFor(s *State) mgl64.Vec3 {
	switch f.Kind {
	case ForceDebris:
		if f.depthBelowGround(s) > 0 {
			return f.Direction.Mul(-1)
		}
		return f.Direction
	case ForceWormhole:
		dist := s.position.Len()
		if dist == 0 {
			return mgl64.Vec3{}
		}
		return s.position.Mul(-1 / dist)
	default:
		return f.Direction
	}
}

// Compute evaluates the force for s and mass. It never mutates s.
func (f Force) Compute(s *State, mass float64) mgl64.Vec3 {
	switch f.Kind {
	case ForceGravity, ForceDebris:
		return f.DirectionFor(s).Mul(mass * f.MagnitudeFor(s))
	case ForceConstantWind, ForceWormhole:
		wind := f.DirectionFor(s).Mul(f.MagnitudeFor(s))
		return s.velocity.Sub(wind).Mul(-f.Dampedness)
	case ForceSpring:
		damping := s.velocity.Mul(-f.Dampedness)
		restoring := s.position.Sub(f.Anchor).Mul(-f.Stiffness)
		return damping.Add(restoring)
	default:
		return mgl64.Vec3{}
	}
}

// depthBelowGround is positive once the body has sunk past GroundHeight.
// Height is measured along the axis opposite to the force direction.
func (f Force) depthBelowGround(s *State) float64 {
	up := f.Direction.Mul(-1)
	if l := up.Len(); l > 0 {
		up = up.Mul(1 / l)
	} else {
		up = Up
	}
	return f.GroundHeight - s.position.Dot(up)
}
