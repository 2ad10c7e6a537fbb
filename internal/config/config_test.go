package config

import (
	"errors"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/audio"
	"github.com/san-kum/clothsim/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Integrator != "euler" {
		t.Errorf("expected integrator euler, got %s", cfg.Integrator)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Frames <= 0 {
		t.Error("frames should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cl, err := cfg.BuildCloth(); err != nil || cl == nil {
		t.Errorf("default cloth: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("drape")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Cloth == nil || cfg.Cloth.Rows != 12 {
		t.Fatalf("unexpected drape cloth: %+v", cfg.Cloth)
	}

	cfg.Cloth.Rows = 99
	cfg.Cloth.Forces[0].Magnitude = 0
	again := GetPreset("drape")
	if again.Cloth.Rows != 12 || again.Cloth.Forces[0].Magnitude != dynamo.StandardGravity {
		t.Error("GetPreset returned a shared copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("presets not sorted: %v", names)
	}
	for _, want := range []string{"debris", "drape", "fireworks", "flag", "wormhole"} {
		if GetPreset(want) == nil {
			t.Errorf("missing preset %s", want)
		}
	}
}

func TestPresetsBuildAndRun(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			bank := audio.NewBank(audio.SampleRate)
			w, err := cfg.BuildWorld(bank)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if (w.Cloth() != nil) != (cfg.Cloth != nil) {
				t.Errorf("cloth presence mismatch")
			}
			if len(w.Systems()) != len(cfg.Emitters) {
				t.Errorf("systems = %d, want %d", len(w.Systems()), len(cfg.Emitters))
			}
			for i := 0; i < 60; i++ {
				if _, err := w.Step(cfg.Dt); err != nil {
					t.Fatalf("frame %d: %v", i, err)
				}
			}
			if !w.IsValid() {
				t.Error("preset went non-finite")
			}
		})
	}
}

func TestSaveLoadScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	orig := GetPreset("wormhole")
	orig.Frames = 42

	if err := Save(path, orig); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(orig, loaded) {
		t.Errorf("loaded scene differs:\n got %+v\nwant %+v", loaded, orig)
	}
}

func TestParseEmitterOnlyScene(t *testing.T) {
	cfg, err := Parse([]byte(`
integrator: verlet
frames: 10
emitters:
  - position: [0, 0, 2]
    muzzle_speed: 5
    max_polar: 15
    max_azimuth: 360
    interval: 0.1
    lifetime: 1
    mass: 1
    max_particles: 10
    at_once: 2
    forces:
      - kind: gravity
        magnitude: 9.81
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cloth != nil {
		t.Error("emitter-only scene picked up the default cloth")
	}
	if cfg.Dt != DefaultDt {
		t.Errorf("dt default lost: %v", cfg.Dt)
	}
	if len(cfg.Emitters) != 1 || cfg.Emitters[0].Position != (Vec3{0, 0, 2}) {
		t.Fatalf("emitters = %+v", cfg.Emitters)
	}

	systems, err := cfg.BuildEmitters(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := systems[0].Config().Sound; got != audio.NoSound {
		t.Errorf("nil bank produced sound %v", got)
	}
}

func TestParseClothOverrides(t *testing.T) {
	cfg, err := Parse([]byte("cloth:\n  rows: 3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cloth == nil || cfg.Cloth.Rows != 3 {
		t.Fatalf("cloth = %+v", cfg.Cloth)
	}
	if cfg.Cloth.Cols != DefaultCols || cfg.Cloth.Iterations != DefaultIterations {
		t.Errorf("cloth defaults lost: %+v", cfg.Cloth)
	}
}

func TestForceConfigToForce(t *testing.T) {
	tests := []struct {
		name string
		fc   ForceConfig
		want dynamo.Force
	}{
		{"gravity default direction", ForceConfig{Kind: "gravity", Magnitude: 9.81}, dynamo.NewGravity()},
		{"gravity along x", ForceConfig{Kind: "gravity", Magnitude: 2, Direction: Vec3{1, 0, 0}},
			dynamo.NewGravityAlong(2, mgl64.Vec3{1, 0, 0})},
		{"debris", ForceConfig{Kind: "debris", Magnitude: 9.81, GroundHeight: -1},
			dynamo.NewDebris(9.81, -1, mgl64.Vec3{0, 0, -1})},
		{"wind", ForceConfig{Kind: "wind", Magnitude: 3, Direction: Vec3{0, 1, 0}, Dampedness: 0.5},
			dynamo.NewConstantWind(3, mgl64.Vec3{0, 1, 0}, 0.5)},
		{"wormhole", ForceConfig{Kind: "wormhole", Magnitude: 2, Dampedness: 0.1}, dynamo.NewWormhole(2, 0.1)},
		{"spring", ForceConfig{Kind: "spring", Stiffness: 4, Dampedness: 0.2, Anchor: Vec3{1, 2, 3}},
			dynamo.NewSpring(4, 0.2, mgl64.Vec3{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fc.ToForce()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ToForce() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := (ForceConfig{Kind: "tornado"}).ToForce(); !errors.Is(err, dynamo.ErrUnknownForce) {
		t.Errorf("unknown kind err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"zero frames", func(c *Config) { c.Frames = 0 }},
		{"unknown integrator", func(c *Config) { c.Integrator = "rk4" }},
		{"empty scene", func(c *Config) { c.Cloth = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Cloth = nil
	if !errors.Is(cfg.Validate(), ErrEmptyScene) {
		t.Error("expected ErrEmptyScene")
	}
}

func TestBuildRejectsBadSections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cloth.Shape = "torus"
	if _, err := cfg.BuildCloth(); err == nil {
		t.Error("expected unknown shape error")
	}

	cfg = GetPreset("fireworks")
	cfg.Emitters[0].AtOnce = cfg.Emitters[0].MaxParticles + 1
	if _, err := cfg.BuildEmitters(nil); err == nil {
		t.Error("expected capacity error")
	}

	cfg = GetPreset("fireworks")
	cfg.Emitters[0].Mass = 0
	if _, err := cfg.BuildEmitters(nil); !errors.Is(err, dynamo.ErrNonPositiveMass) {
		t.Errorf("err = %v, want ErrNonPositiveMass", err)
	}
}
