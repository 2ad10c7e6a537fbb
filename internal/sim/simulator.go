package sim

import (
	"context"
	"fmt"
)

type Simulator struct {
	scene     Scene
	metrics   []Metric
	observers []Observer
}

func New(scene Scene) *Simulator {
	return &Simulator{
		scene:     scene,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run steps the scene cfg.Frames times. Cancellation is checked between
// frames; a frame that has started always completes. Step errors are
// collected in the result rather than aborting the run, except for a
// non-finite scene when cfg.ValidateState is set.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Residuals: make([]float64, 0, cfg.Frames),
		Live:      make([]int, 0, cfg.Frames),
		Metrics:   make(map[string]float64),
		Errors:    make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	t := 0.0
	for i := 0; i < cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			s.collectMetrics(result)
			return result, ctx.Err()
		default:
		}

		f, err := s.scene.Step(cfg.Dt)
		if err != nil {
			result.Errors = append(result.Errors, SimError{Time: t, Step: i, Message: "step failed", Err: err})
		}

		if cfg.ValidateState && !s.scene.IsValid() {
			result.Errors = append(result.Errors, SimError{Time: t, Step: i, Message: "invalid state (NaN/Inf)"})
			break
		}

		for _, m := range s.metrics {
			m.Observe(f)
		}
		for _, obs := range s.observers {
			obs.OnFrame(f)
		}

		t += cfg.Dt
		result.FramesRun++
		result.Time = t
		result.Residuals = append(result.Residuals, f.FinalResidual())
		result.Live = append(result.Live, f.Live)
	}

	s.collectMetrics(result)
	return result, nil
}

func (s *Simulator) collectMetrics(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", cfg.Frames)
	}
	return nil
}

// RunWithCallback steps the scene until cfg.Frames have run, the context
// is cancelled or callback returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Frame) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	for i := 0; i < cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		f, err := s.scene.Step(cfg.Dt)
		if err != nil {
			return SimError{Time: f.Time, Step: i, Message: "step failed", Err: err}
		}
		if cfg.ValidateState && !s.scene.IsValid() {
			return fmt.Errorf("invalid state at t=%.4f", f.Time)
		}

		if !callback(f) {
			return nil
		}
	}

	return nil
}
