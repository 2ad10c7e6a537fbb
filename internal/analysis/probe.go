package analysis

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/sim"
)

// Probe records the position of one cloth particle projected on an axis,
// once per frame. It is a sim.Observer.
type Probe struct {
	cl       *cloth.Cloth
	row, col int
	axis     mgl64.Vec3
	samples  []float64
}

// NewProbe watches particle (row, col). The axis is normalised; a zero
// axis records nothing.
func NewProbe(cl *cloth.Cloth, row, col int, axis mgl64.Vec3) *Probe {
	if l := axis.Len(); l > 0 {
		axis = axis.Mul(1 / l)
	}
	return &Probe{cl: cl, row: row, col: col, axis: axis}
}

func (p *Probe) OnFrame(sim.Frame) {
	part, ok := p.cl.GetParticle(p.row, p.col)
	if !ok || part.State() == nil || p.axis.Len() == 0 {
		return
	}
	p.samples = append(p.samples, part.State().Position().Dot(p.axis))
}

// Samples returns the recorded positions, oldest first.
func (p *Probe) Samples() []float64 { return p.samples }

func (p *Probe) Reset() { p.samples = p.samples[:0] }
