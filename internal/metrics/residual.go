package metrics

import (
	"math"

	"github.com/san-kum/clothsim/internal/sim"
)

// Residual averages the final solver residual of every frame.
type Residual struct {
	name    string
	sum     float64
	peak    float64
	samples int
}

func NewResidual() *Residual {
	return &Residual{
		name: "residual",
	}
}

func (r *Residual) Name() string {
	return r.name
}

func (r *Residual) Observe(f sim.Frame) {
	v := f.FinalResidual()
	r.sum += v
	r.peak = math.Max(r.peak, v)
	r.samples++
}

func (r *Residual) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.sum / float64(r.samples)
}

// Peak is the largest residual seen since the last Reset.
func (r *Residual) Peak() float64 { return r.peak }

func (r *Residual) Reset() {
	r.sum = 0
	r.peak = 0
	r.samples = 0
}

// LiveParticles tracks the most emitted particles alive in any frame.
type LiveParticles struct {
	name string
	peak int
}

func NewLiveParticles() *LiveParticles {
	return &LiveParticles{name: "live_particles"}
}

func (l *LiveParticles) Name() string { return l.name }

func (l *LiveParticles) Observe(f sim.Frame) {
	if f.Live > l.peak {
		l.peak = f.Live
	}
}

func (l *LiveParticles) Value() float64 { return float64(l.peak) }
func (l *LiveParticles) Reset()         { l.peak = 0 }
