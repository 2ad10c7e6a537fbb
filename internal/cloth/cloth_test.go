package cloth

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/render"
)

func gridConfig(rows, cols int, shear, bend float64) Config {
	cfg := DefaultConfig()
	cfg.Rows = rows
	cfg.Cols = cols
	cfg.BaseDistance = 1
	cfg.ShearRatio = shear
	cfg.BendRatio = bend
	return cfg
}

func mustCloth(t testing.TB, cfg Config) *Cloth {
	t.Helper()
	cl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cl
}

func position(t testing.TB, cl *Cloth, r, c int) mgl64.Vec3 {
	t.Helper()
	p, ok := cl.GetParticle(r, c)
	if !ok {
		t.Fatalf("no particle at (%d,%d)", r, c)
	}
	pos, err := p.Position()
	if err != nil {
		t.Fatal(err)
	}
	return pos
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"default", func(*Config) {}, nil},
		{"zero rows", func(c *Config) { c.Rows = 0 }, ErrInvalidDimensions},
		{"negative cols", func(c *Config) { c.Cols = -2 }, ErrInvalidDimensions},
		{"zero distance", func(c *Config) { c.BaseDistance = 0 }, ErrInvalidDistance},
		{"nan distance", func(c *Config) { c.BaseDistance = math.NaN() }, ErrInvalidDistance},
		{"no iterations", func(c *Config) { c.Iterations = 0 }, ErrInvalidIterations},
		{"overshooting solver", func(c *Config) { c.Stiffness = 2000 }, ErrUnstableSolver},
		{"zero stiffness", func(c *Config) { c.Stiffness = 0 }, ErrUnstableSolver},
		{"gain exactly one", func(c *Config) { c.Stiffness, c.FixedStep = 1000, 0.001 }, nil},
		{"zero mass", func(c *Config) { c.ParticleMass = 0 }, dynamo.ErrNonPositiveMass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConstraintsDeduplicated(t *testing.T) {
	tests := []struct {
		rows, cols            int
		shear, bend           float64
		stretch, nShear, nBnd int
	}{
		{3, 3, math.Sqrt2, 2, 12, 8, 6},
		{3, 3, 0, 0, 12, 0, 0},
		{1, 1, 1, 1, 0, 0, 0},
		{1, 4, 1, 2, 3, 0, 2},
		{2, 5, 1, 2, 13, 8, 6},
	}

	for _, tt := range tests {
		cl := mustCloth(t, gridConfig(tt.rows, tt.cols, tt.shear, tt.bend))
		counts := map[ConstraintKind]int{}
		seen := map[constraintKey]bool{}
		pairs := map[[2]int]bool{}
		cs := cl.Constraints()
		for i, cc := range cs {
			if cc.P1 >= cc.P2 {
				t.Errorf("%dx%d: constraint %d not canonical: %+v", tt.rows, tt.cols, i, cc)
			}
			key := constraintKey{cc.P1, cc.P2, cc.Kind}
			if seen[key] {
				t.Errorf("%dx%d: duplicate constraint %+v", tt.rows, tt.cols, cc)
			}
			seen[key] = true
			pair := [2]int{cc.P1, cc.P2}
			if pairs[pair] {
				t.Errorf("%dx%d: particle pair linked twice: %+v", tt.rows, tt.cols, cc)
			}
			pairs[pair] = true
			counts[cc.Kind]++

			if i > 0 {
				prev := cs[i-1]
				if prev.P1 > cc.P1 || (prev.P1 == cc.P1 && prev.P2 > cc.P2) {
					t.Errorf("%dx%d: constraints out of order at %d", tt.rows, tt.cols, i)
				}
			}
		}
		if counts[Stretch] != tt.stretch || counts[Shear] != tt.nShear || counts[Bend] != tt.nBnd {
			t.Errorf("%dx%d: counts = %v, want stretch=%d shear=%d bend=%d",
				tt.rows, tt.cols, counts, tt.stretch, tt.nShear, tt.nBnd)
		}
	}
}

func TestConstraintRestDistances(t *testing.T) {
	cfg := gridConfig(3, 3, 1.5, 2.5)
	cfg.BaseDistance = 0.2
	cl := mustCloth(t, cfg)

	want := map[ConstraintKind]float64{Stretch: 0.2, Shear: 0.3, Bend: 0.5}
	for _, cc := range cl.Constraints() {
		if math.Abs(cc.RestDistance-want[cc.Kind]) > 1e-12 {
			t.Errorf("%v rest = %v, want %v", cc.Kind, cc.RestDistance, want[cc.Kind])
		}
	}
}

func TestGetParticleBounds(t *testing.T) {
	cl := mustCloth(t, gridConfig(2, 3, 0, 0))

	tests := []struct {
		r, c int
		ok   bool
	}{
		{0, 0, true},
		{1, 2, true},
		{2, 0, false},
		{0, 3, false},
		{-1, 0, false},
		{0, -1, false},
	}
	for _, tt := range tests {
		p, ok := cl.GetParticle(tt.r, tt.c)
		if ok != tt.ok || (ok && p == nil) {
			t.Errorf("GetParticle(%d,%d) ok=%v p=%v", tt.r, tt.c, ok, p)
		}
	}
}

func TestNonSquareLayout(t *testing.T) {
	cfg := gridConfig(2, 5, 0, 0)
	cfg.Origin = mgl64.Vec3{1, 2, 3}
	cfg.BaseDistance = 0.5
	cl := mustCloth(t, cfg)

	for r := 0; r < 2; r++ {
		for c := 0; c < 5; c++ {
			want := mgl64.Vec3{1 + 0.5*float64(c), 2, 3 - 0.5*float64(r)}
			if got := position(t, cl, r, c); !got.ApproxEqual(want) {
				t.Errorf("(%d,%d) = %v, want %v", r, c, got, want)
			}
		}
	}

	pinned := 0
	for _, p := range cl.Particles() {
		if p.IsPinned() {
			pinned++
		}
	}
	tl, _ := cl.GetParticle(0, 0)
	tr, _ := cl.GetParticle(0, 4)
	if pinned != 2 || !tl.IsPinned() || !tr.IsPinned() {
		t.Errorf("expected exactly the top corners pinned, got %d", pinned)
	}
}

func TestPinnedParticlesNeverMove(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))

	for trial := 0; trial < 1000; trial++ {
		cfg := DefaultConfig()
		cfg.Rows = 1 + rng.Intn(6)
		cfg.Cols = 1 + rng.Intn(6)
		cfg.BaseDistance = 0.05 + rng.Float64()
		cfg.ShearRatio = rng.Float64() * 2
		cfg.BendRatio = rng.Float64() * 3
		cfg.Iterations = 1 + rng.Intn(4)
		cfg.InitialVelocity = mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		cfg.Forces = append(cfg.Forces, dynamo.NewConstantWind(rng.Float64()*5, mgl64.Vec3{1, 0, 0}, 0.5))

		cl := mustCloth(t, cfg)
		for _, p := range cl.Particles() {
			if rng.Float64() < 0.2 {
				p.SetPinned(true)
			}
		}

		before := map[int]mgl64.Vec3{}
		for i, p := range cl.Particles() {
			if p.IsPinned() {
				before[i], _ = p.Position()
			}
		}

		for tick := 0; tick < 3; tick++ {
			if _, err := cl.Update(0.016); err != nil {
				t.Fatalf("trial %d: %v", trial, err)
			}
		}

		ps := cl.Particles()
		for i, want := range before {
			if got, _ := ps[i].Position(); got != want {
				t.Fatalf("trial %d (%dx%d): pinned particle %d moved %v -> %v",
					trial, cfg.Rows, cfg.Cols, i, want, got)
			}
		}
	}
}

func TestRelaxationConverges(t *testing.T) {
	cfg := gridConfig(4, 4, 0, 0)
	cfg.Iterations = 1
	cl := mustCloth(t, cfg)

	p, _ := cl.GetParticle(3, 3)
	if err := p.Translate(mgl64.Vec3{0.05, 0.03, -0.05}); err != nil {
		t.Fatal(err)
	}

	prev := math.Inf(1)
	converged := false
	for pass := 0; pass < 1000; pass++ {
		res := cl.SatisfyConstraints()
		if len(res) != 1 {
			t.Fatalf("residuals = %d, want 1", len(res))
		}
		if res[0] >= prev {
			t.Fatalf("pass %d: residual %v did not drop below %v", pass, res[0], prev)
		}
		prev = res[0]
		if prev < 1e-6 {
			converged = true
			break
		}
	}
	if !converged {
		t.Fatalf("residual still %v after 1000 passes", prev)
	}
}

func TestHangingClothKeepsStructure(t *testing.T) {
	cfg := gridConfig(3, 3, 0, 0)
	cfg.Iterations = DefaultIterations
	cl := mustCloth(t, cfg)

	for tick := 0; tick < 200; tick++ {
		if _, err := cl.Update(1.0 / 60); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
	}

	ps := cl.Particles()
	for i, p := range ps {
		pos, _ := p.Position()
		if !dynamo.IsFinite(pos) {
			t.Fatalf("particle %d not finite: %v", i, pos)
		}
	}
	for _, cc := range cl.Constraints() {
		if cc.Kind != Stretch {
			t.Fatalf("unexpected %v constraint", cc.Kind)
		}
		a, _ := ps[cc.P1].Position()
		b, _ := ps[cc.P2].Position()
		if d := a.Sub(b).Len(); math.Abs(d-1) > 0.01 {
			t.Errorf("constraint %d-%d length %v, want within 1%% of 1", cc.P1, cc.P2, d)
		}
	}

	if top, bottom := position(t, cl, 0, 1), position(t, cl, 2, 1); bottom.Z() >= top.Z() {
		t.Errorf("cloth folded over: top z=%v bottom z=%v", top.Z(), bottom.Z())
	}
}

func TestUpdateUsesFixedStep(t *testing.T) {
	a := mustCloth(t, gridConfig(3, 3, math.Sqrt2, 2))
	b := mustCloth(t, gridConfig(3, 3, math.Sqrt2, 2))

	for i := 0; i < 20; i++ {
		_, _ = a.Update(0.001)
		_, _ = b.Update(5)
	}
	pa, pb := a.Particles(), b.Particles()
	for i := range pa {
		x, _ := pa[i].Position()
		y, _ := pb[i].Position()
		if x != y {
			t.Fatalf("particle %d diverged with frame delta: %v vs %v", i, x, y)
		}
	}
}

func TestNoNaNUnderAbuse(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	cfg := DefaultConfig()
	cfg.Rows, cfg.Cols = 6, 8
	cfg.Forces = append(cfg.Forces,
		dynamo.NewWormhole(2, 0.3),
		dynamo.NewSpring(5, 0.2, mgl64.Vec3{0, 0, -1}),
		dynamo.NewDebris(dynamo.StandardGravity, -0.5, dynamo.Up.Mul(-1)),
	)
	cl := mustCloth(t, cfg)

	for tick := 0; tick < 500; tick++ {
		switch rng.Intn(10) {
		case 0:
			cl.MoveClothByOffset(mgl64.Vec3{rng.NormFloat64() * 0.05, 0, rng.NormFloat64() * 0.05})
		case 1:
			ps := cl.Particles()
			pos, _ := ps[rng.Intn(len(ps))].Position()
			cl.Puncture(pos, 0.05)
		case 2:
			ps := cl.Particles()
			ps[rng.Intn(len(ps))].TogglePinned()
		}
		if _, err := cl.Update(0.016); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
	}

	for i, p := range cl.Particles() {
		if !p.State().IsValid() {
			t.Fatalf("particle %d invalid: %v %v", i, p.State().Position(), p.State().Velocity())
		}
	}
}

func TestPunctureDropsConstraints(t *testing.T) {
	cl := mustCloth(t, gridConfig(3, 3, 0, 0))
	centre := position(t, cl, 1, 1)
	below := position(t, cl, 2, 1)

	if hit := cl.Puncture(centre.Add(below).Mul(0.5), 0.6); hit != 2 {
		t.Fatalf("hit = %d, want 2", hit)
	}
	if cl.Alive() != 7 {
		t.Errorf("alive = %d, want 7", cl.Alive())
	}

	before := len(cl.Constraints())
	if _, err := cl.Update(0.016); err != nil {
		t.Fatal(err)
	}
	after := cl.Constraints()
	if len(after) != before-1 {
		t.Fatalf("constraints %d -> %d, want one dropped", before, len(after))
	}
	for _, cc := range after {
		if cc.P1 == 4 && cc.P2 == 7 {
			t.Error("constraint between two expired particles survived")
		}
	}

	if again := cl.Puncture(centre, 0.1); again != 0 {
		t.Errorf("expired particles punctured twice: %d", again)
	}
}

func TestExpiredParticlesAreNotIntegrated(t *testing.T) {
	cl := mustCloth(t, gridConfig(3, 3, 0, 0))
	p, _ := cl.GetParticle(2, 2)
	p.SetExpired(true)
	_ = p.SetVelocity(mgl64.Vec3{0, 0, -100})
	before, _ := p.Position()

	_, _ = cl.Update(0.016)

	after, _ := p.Position()
	if before != after {
		t.Errorf("expired particle moved %v -> %v", before, after)
	}
}

func TestExpiredParticleAnchorsLiveNeighbour(t *testing.T) {
	tests := []struct {
		name  string
		nudge mgl64.Vec3
	}{
		{"stretched", mgl64.Vec3{0.5, 0, 0}},
		{"compressed", mgl64.Vec3{-0.5, 0, 0}},
		{"sideways", mgl64.Vec3{0, 0.3, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := gridConfig(3, 3, 0, 0)
			cfg.Forces = nil
			cl := mustCloth(t, cfg)

			dead, _ := cl.GetParticle(2, 2)
			dead.SetExpired(true)
			_ = dead.SetPosition(position(t, cl, 2, 2).Add(tt.nudge))
			before, _ := dead.Position()
			neighbour := position(t, cl, 2, 1)

			res, err := cl.Update(0.016)
			if err != nil {
				t.Fatal(err)
			}
			if len(res) != cfg.Iterations {
				t.Fatalf("residuals = %d, want %d", len(res), cfg.Iterations)
			}

			if after, _ := dead.Position(); after != before {
				t.Errorf("expired particle moved %v -> %v", before, after)
			}
			if got := position(t, cl, 2, 1); got == neighbour {
				t.Error("live neighbour was not pulled toward the expired particle")
			}
		})
	}
}

func TestMoveClothByOffset(t *testing.T) {
	cfg := gridConfig(3, 4, 0, 0)
	cl := mustCloth(t, cfg)
	offset := mgl64.Vec3{0.5, -0.25, 1}

	cl.MoveClothByOffset(offset)

	for c := 0; c < 4; c++ {
		want := mgl64.Vec3{float64(c), 0, 0}.Add(offset)
		if got := position(t, cl, 0, c); !got.ApproxEqual(want) {
			t.Errorf("top row %d = %v, want %v", c, got, want)
		}
	}
	if got := position(t, cl, 1, 0); got != (mgl64.Vec3{0, 0, -1}) {
		t.Errorf("second row moved: %v", got)
	}
	if !cl.CurrentTopLeft().ApproxEqual(offset) {
		t.Errorf("CurrentTopLeft = %v", cl.CurrentTopLeft())
	}
	if cl.OriginalTopLeft() != (mgl64.Vec3{}) {
		t.Errorf("OriginalTopLeft changed: %v", cl.OriginalTopLeft())
	}
	if want := offset.Add(mgl64.Vec3{3, 0, 0}); !cl.TopRight().ApproxEqual(want) {
		t.Errorf("TopRight = %v, want %v", cl.TopRight(), want)
	}

	cl.SetTopLeftPosition(mgl64.Vec3{9, 9, 9})
	if cl.CurrentTopLeft() != (mgl64.Vec3{9, 9, 9}) {
		t.Error("SetTopLeftPosition ignored")
	}
	if position(t, cl, 0, 0) == (mgl64.Vec3{9, 9, 9}) {
		t.Error("SetTopLeftPosition moved a particle")
	}
}

func TestSetDistancesForConstraints(t *testing.T) {
	cl := mustCloth(t, gridConfig(3, 3, math.Sqrt2, 2))

	n, err := cl.SetDistancesForConstraints(Shear, 0.75)
	if err != nil || n != 8 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	for _, cc := range cl.Constraints() {
		switch cc.Kind {
		case Shear:
			if cc.RestDistance != 0.75 {
				t.Errorf("shear rest = %v", cc.RestDistance)
			}
		case Stretch:
			if cc.RestDistance != 1 {
				t.Errorf("stretch rest changed: %v", cc.RestDistance)
			}
		}
	}

	if _, err := cl.SetDistancesForConstraints(Bend, 0); !errors.Is(err, ErrInvalidDistance) {
		t.Errorf("err = %v, want ErrInvalidDistance", err)
	}
}

func TestResidualObserver(t *testing.T) {
	cfg := gridConfig(3, 3, 0, 0)
	cfg.Iterations = 4
	cl := mustCloth(t, cfg)

	var seen []int
	cl.AddResidualObserver(ResidualFunc(func(it int, res float64) {
		seen = append(seen, it)
		if res < 0 {
			t.Errorf("negative residual %v", res)
		}
	}))

	res, err := cl.Update(0.016)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 4 || len(seen) != 4 {
		t.Fatalf("residuals=%d observed=%d, want 4", len(res), len(seen))
	}
	for i, it := range seen {
		if it != i {
			t.Errorf("observed iteration %d at position %d", it, i)
		}
	}
}

func TestRenderLayers(t *testing.T) {
	cl := mustCloth(t, gridConfig(3, 3, math.Sqrt2, 2))

	var rec render.Recorder
	cl.Render(&rec, RenderOptions{Cloth: true, Constraints: true, Particles: true})

	if len(rec.Quads) != 4 {
		t.Fatalf("quads = %d, want 4", len(rec.Quads))
	}
	if len(rec.Lines) != len(cl.Constraints()) {
		t.Errorf("lines = %d, want %d", len(rec.Lines), len(cl.Constraints()))
	}
	if len(rec.Markers) != 9 {
		t.Errorf("markers = %d, want 9", len(rec.Markers))
	}

	colours := map[render.Color]int{}
	for _, l := range rec.Lines {
		colours[l.Color]++
	}
	if colours[render.Red] != 12 || colours[render.Green] != 8 || colours[render.Blue] != 6 {
		t.Errorf("line colours = %v", colours)
	}

	q := rec.Quads[0]
	wantPos := []mgl64.Vec3{{0, 0, -1}, {1, 0, -1}, {1, 0, 0}, {0, 0, 0}}
	wantUV := []mgl64.Vec2{{1, 0.5}, {0.5, 0.5}, {0.5, 0}, {1, 0}}
	for i := range q {
		if !q[i].Position.ApproxEqual(wantPos[i]) {
			t.Errorf("vertex %d position = %v, want %v", i, q[i].Position, wantPos[i])
		}
		if !q[i].UV.ApproxEqual(wantUV[i]) {
			t.Errorf("vertex %d uv = %v, want %v", i, q[i].UV, wantUV[i])
		}
		if q[i].Color != render.White {
			t.Errorf("vertex %d colour = %v", i, q[i].Color)
		}
	}
}

func TestRenderSkipsDeadBlocks(t *testing.T) {
	cl := mustCloth(t, gridConfig(2, 3, 0, 0))
	for _, idx := range []int{0, 1, 3, 4} {
		cl.Particles()[idx].SetExpired(true)
	}

	var rec render.Recorder
	cl.Render(&rec, RenderOptions{Cloth: true, Particles: true})
	if len(rec.Quads) != 1 {
		t.Errorf("quads = %d, want 1", len(rec.Quads))
	}
	if len(rec.Markers) != 2 {
		t.Errorf("markers = %d, want 2", len(rec.Markers))
	}

	rec.Reset()
	single := mustCloth(t, gridConfig(1, 1, 0, 0))
	single.Render(&rec, RenderOptions{Cloth: true, Constraints: true})
	if len(rec.Quads) != 0 || len(rec.Lines) != 0 {
		t.Errorf("1x1 cloth drew %d quads and %d lines", len(rec.Quads), len(rec.Lines))
	}
}

func TestParseConstraintKind(t *testing.T) {
	for _, k := range []ConstraintKind{Stretch, Shear, Bend} {
		got, err := ParseConstraintKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseConstraintKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseConstraintKind("twist"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func BenchmarkSatisfyConstraints(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Rows, cfg.Cols = 20, 20
	cl := mustCloth(b, cfg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cl.SatisfyConstraints()
	}
}

func BenchmarkUpdate(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Rows, cfg.Cols = 20, 20
	cl := mustCloth(b, cfg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cl.Update(1.0 / 60)
	}
}
