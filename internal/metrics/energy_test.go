package metrics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/sim"
)

func newCloth(t *testing.T, rows, cols int) *cloth.Cloth {
	t.Helper()
	cfg := cloth.DefaultConfig()
	cfg.Rows, cfg.Cols = rows, cols
	cfg.BaseDistance = 1
	cfg.ShearRatio, cfg.BendRatio = 0, 0
	cl, err := cloth.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return cl
}

func TestClothEnergyAtRest(t *testing.T) {
	cl := newCloth(t, 2, 2)

	// two particles at the reference height, two hanging one unit below
	expected := 2 * 1.0 * 9.81 * -1.0
	if got := ClothEnergy(cl, 9.81); math.Abs(got-expected) > 1e-9 {
		t.Errorf("expected energy %f, got %f", expected, got)
	}
}

func TestClothEnergyKinetic(t *testing.T) {
	cl := newCloth(t, 1, 1)
	p, _ := cl.GetParticle(0, 0)
	if err := p.SetVelocity(mgl64.Vec3{3, 4, 0}); err != nil {
		t.Fatal(err)
	}

	if got := ClothEnergy(cl, 9.81); math.Abs(got-12.5) > 1e-9 {
		t.Errorf("expected kinetic energy 12.5, got %f", got)
	}

	p.SetExpired(true)
	if got := ClothEnergy(cl, 9.81); got != 0 {
		t.Errorf("expired particle counted: %f", got)
	}
}

func TestEnergyReset(t *testing.T) {
	cl := newCloth(t, 2, 2)
	m := NewEnergy(cl, dynamo.StandardGravity)

	m.Observe(sim.Frame{})
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestResidualMetric(t *testing.T) {
	m := NewResidual()
	m.Observe(sim.Frame{Residuals: []float64{5, 1}})
	m.Observe(sim.Frame{Residuals: []float64{9, 3}})
	m.Observe(sim.Frame{})

	if got := m.Value(); math.Abs(got-4.0/3) > 1e-12 {
		t.Errorf("mean residual = %v", got)
	}
	if m.Peak() != 3 {
		t.Errorf("peak = %v", m.Peak())
	}

	m.Reset()
	if m.Value() != 0 || m.Peak() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestStability(t *testing.T) {
	tests := []struct {
		name      string
		residuals []float64
		want      float64
	}{
		{"none", nil, 1},
		{"all below", []float64{0.1, 0.2, 0.3}, 1},
		{"half above", []float64{0.1, 2, 0.3, 5}, 0.5},
		{"nan counts", []float64{math.NaN(), 0.1}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStability(1)
			for _, r := range tt.residuals {
				m.Observe(sim.Frame{Residuals: []float64{100, r}})
			}
			if got := m.Value(); got != tt.want {
				t.Errorf("Value() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLiveParticles(t *testing.T) {
	m := NewLiveParticles()
	for _, n := range []int{3, 7, 2} {
		m.Observe(sim.Frame{Live: n})
	}
	if m.Value() != 7 {
		t.Errorf("peak live = %v", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestStretchError(t *testing.T) {
	cl := newCloth(t, 2, 2)
	m := NewStretchError(cl)

	m.Observe(sim.Frame{})
	if m.Value() > 1e-12 {
		t.Fatalf("rest cloth reports stretch %v", m.Value())
	}

	p, _ := cl.GetParticle(1, 1)
	if err := p.Translate(mgl64.Vec3{0, 0, -0.5}); err != nil {
		t.Fatal(err)
	}
	m.Observe(sim.Frame{})
	// the vertical link from (0,1) grew from 1 to 1.5
	if math.Abs(m.Value()-0.5) > 1e-9 {
		t.Errorf("stretch error = %v, want 0.5", m.Value())
	}
}
