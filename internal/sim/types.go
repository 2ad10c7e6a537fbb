package sim

import (
	"fmt"
	"math"
)

// Frame summarises one host tick.
type Frame struct {
	Index int
	Time  float64

	// Residuals holds the cloth solver residual of every relaxation pass,
	// or nothing when the scene has no cloth.
	Residuals []float64

	// Alive counts cloth particles that have not been punctured.
	Alive int

	// Live counts emitted particles currently held by every emitter.
	Live int
}

// FinalResidual is the residual of the last relaxation pass, or 0.
func (f Frame) FinalResidual() float64 {
	if len(f.Residuals) == 0 {
		return 0
	}
	return f.Residuals[len(f.Residuals)-1]
}

// Scene is anything that advances by one host frame.
type Scene interface {
	Step(dt float64) (Frame, error)
	IsValid() bool
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f Frame)

func (fn ObserverFunc) OnFrame(f Frame) { fn(f) }

type Config struct {
	Dt            float64
	Frames        int
	ValidateState bool
	Seed          int64
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0 / 60,
		Frames:        600,
		ValidateState: true,
		Seed:          1,
	}
}

// Duration is the simulated host time covered by cfg.
func (c Config) Duration() float64 { return c.Dt * float64(c.Frames) }

type Result struct {
	FramesRun int
	Time      float64

	// Residuals and Live hold one entry per completed frame.
	Residuals []float64
	Live      []int

	Metrics map[string]float64
	Errors  []error
}

// PeakResidual returns the largest per-frame final residual.
func (r *Result) PeakResidual() float64 {
	peak := 0.0
	for _, v := range r.Residuals {
		peak = math.Max(peak, v)
	}
	return peak
}

type SimError struct {
	Time    float64
	Step    int
	Message string
	Err     error
}

func (e SimError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %d (t=%.4f): %s: %v", e.Step, e.Time, e.Message, e.Err)
	}
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error { return e.Err }
