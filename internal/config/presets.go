package config

import (
	"math"
	"sort"

	"github.com/san-kum/clothsim/internal/audio"
	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
)

var (
	gravity = ForceConfig{Kind: "gravity", Magnitude: dynamo.StandardGravity}
	airDrag = ForceConfig{Kind: "wind", Dampedness: 0.05}
)

var Presets = map[string]*Config{
	"drape": {
		Name: "drape", Integrator: "euler", Dt: DefaultDt, Frames: 900, Seed: 1,
		Cloth: &ClothConfig{
			Origin: Vec3{-0.55, 0, 1}, Rows: 12, Cols: 12, BaseDistance: 0.1,
			ShearRatio: math.Sqrt2, BendRatio: 2, Iterations: DefaultIterations,
			Stiffness: cloth.DefaultStiffness, FixedStep: cloth.DefaultFixedStep,
			Mass: 1, Radius: 0.01, Shape: "sphere",
			Forces: []ForceConfig{gravity, airDrag},
		},
	},
	"flag": {
		Name: "flag", Integrator: "verlet", Dt: DefaultDt, Frames: 900, Seed: 1,
		Cloth: &ClothConfig{
			Origin: Vec3{-0.65, 0, 1}, Rows: 8, Cols: 14, BaseDistance: 0.1,
			ShearRatio: math.Sqrt2, BendRatio: 2, Iterations: 40,
			Stiffness: cloth.DefaultStiffness, FixedStep: cloth.DefaultFixedStep,
			Mass: 0.5, Radius: 0.01, Shape: "sphere",
			Forces: []ForceConfig{
				gravity,
				{Kind: "wind", Magnitude: 4, Direction: Vec3{0.3, 1, 0}, Dampedness: 0.4},
			},
		},
	},
	"fireworks": {
		Name: "fireworks", Integrator: "euler", Dt: DefaultDt, Frames: 600, Seed: 7,
		Emitters: []EmitterConfig{{
			Position: Vec3{0, 0, 0}, Shape: "sphere", Radius: 0.03, Mass: 1,
			MuzzleSpeed: 12, MinPolar: 0, MaxPolar: 30, MinAzimuth: 0, MaxAzimuth: 360,
			Interval: 0.5, Lifetime: 2.5, MaxParticles: 200, AtOnce: 40,
			Sound:  audio.FireballSound,
			Forces: []ForceConfig{gravity, {Kind: "wind", Dampedness: 0.3}},
		}},
	},
	"debris": {
		Name: "debris", Integrator: "verlet", Dt: DefaultDt, Frames: 600, Seed: 3,
		Emitters: []EmitterConfig{{
			Position: Vec3{0, 0, 1}, Shape: "box", Radius: 0.04, Mass: 2,
			MuzzleSpeed: 6, MinPolar: 20, MaxPolar: 60, MinAzimuth: -45, MaxAzimuth: 45,
			Interval: 0.25, Lifetime: 4, MaxParticles: 120, AtOnce: 12,
			Sound: audio.FireballSound,
			Forces: []ForceConfig{
				{Kind: "debris", Magnitude: dynamo.StandardGravity, GroundHeight: 0},
				{Kind: "wind", Dampedness: 0.8},
			},
		}},
	},
	"wormhole": {
		Name: "wormhole", Integrator: "euler", Dt: DefaultDt, Frames: 900, Seed: 5,
		Cloth: &ClothConfig{
			Origin: Vec3{-0.45, 0.5, 0.5}, Rows: 10, Cols: 10, BaseDistance: 0.1,
			ShearRatio: math.Sqrt2, BendRatio: 2, Iterations: DefaultIterations,
			Stiffness: cloth.DefaultStiffness, FixedStep: cloth.DefaultFixedStep,
			Mass: 1, Radius: 0.01, Shape: "sphere",
			Forces: []ForceConfig{{Kind: "wormhole", Magnitude: 2, Dampedness: 0.5}},
		},
		Emitters: []EmitterConfig{{
			Position: Vec3{1, 1, 0}, Shape: "sphere", Radius: 0.02, Mass: 1,
			MuzzleSpeed: 2, MinPolar: 60, MaxPolar: 120, MinAzimuth: 0, MaxAzimuth: 360,
			Interval: 0.1, Lifetime: 6, MaxParticles: 150, AtOnce: 5,
			Forces: []ForceConfig{
				{Kind: "wormhole", Magnitude: 1.5, Dampedness: 0.6},
				{Kind: "spring", Stiffness: 0.5, Dampedness: 0.1},
			},
		}},
	},
}

// GetPreset returns a private copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
