package metrics

import (
	"math"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/sim"
)

// Stability is the fraction of frames whose final residual stayed at or
// below threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f sim.Frame) {
	s.samples++
	if val := f.FinalResidual(); math.IsNaN(val) || val > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// StretchError records the worst relative deviation of a stretch
// constraint from its rest length.
type StretchError struct {
	name  string
	cloth *cloth.Cloth
	worst float64
}

func NewStretchError(cl *cloth.Cloth) *StretchError {
	return &StretchError{name: "stretch_error", cloth: cl}
}

func (s *StretchError) Name() string { return s.name }

func (s *StretchError) Observe(f sim.Frame) {
	s.worst = math.Max(s.worst, WorstStretch(s.cloth))
}

func (s *StretchError) Value() float64 { return s.worst }
func (s *StretchError) Reset()         { s.worst = 0 }

// WorstStretch returns max |len-rest|/rest over the cloth's stretch
// constraints.
func WorstStretch(cl *cloth.Cloth) float64 {
	ps := cl.Particles()
	worst := 0.0
	for _, cc := range cl.Constraints() {
		if cc.Kind != cloth.Stretch {
			continue
		}
		d := ps[cc.P1].State().Position().Sub(ps[cc.P2].State().Position()).Len()
		worst = math.Max(worst, math.Abs(d-cc.RestDistance)/cc.RestDistance)
	}
	return worst
}
