package metrics

import (
	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/sim"
)

// Energy averages the mechanical energy of a cloth over the observed
// frames: kinetic energy plus gravitational potential measured along
// dynamo.Up from the original top-left corner.
type Energy struct {
	name        string
	cloth       *cloth.Cloth
	gravity     float64
	samples     int
	totalEnergy float64
}

func NewEnergy(cl *cloth.Cloth, gravity float64) *Energy {
	return &Energy{
		name:    "energy",
		cloth:   cl,
		gravity: gravity,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f sim.Frame) {
	e.totalEnergy += ClothEnergy(e.cloth, e.gravity)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// ClothEnergy sums kinetic and potential energy over live cloth particles.
func ClothEnergy(cl *cloth.Cloth, gravity float64) float64 {
	ref := cl.OriginalTopLeft().Dot(dynamo.Up)
	total := 0.0
	for _, p := range cl.Particles() {
		if p.IsExpired() {
			continue
		}
		s := p.State()
		v := s.Velocity()
		ke := 0.5 * p.Mass() * v.Dot(v)
		pe := p.Mass() * gravity * (s.Position().Dot(dynamo.Up) - ref)
		total += ke + pe
	}
	return total
}
