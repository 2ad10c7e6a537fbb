package sim

import (
	"context"
	"sync"
)

// SceneFactory builds an independent scene for one ensemble member.
type SceneFactory func(seed int64) (Scene, error)

// Ensemble runs independent scenes side by side, one goroutine each.
// Scenes never share state, so each one still steps single-threaded.
type Ensemble struct {
	factory   SceneFactory
	metrics   func() []Metric
	numRuns   int
	seedStart int64
}

func NewEnsemble(factory SceneFactory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart}
}

// WithMetrics gives every member a fresh metric set from newMetrics.
func (e *Ensemble) WithMetrics(newMetrics func() []Metric) *Ensemble {
	e.metrics = newMetrics
	return e
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			scene, err := e.factory(cfgCopy.Seed)
			if err != nil {
				errs[idx] = err
				return
			}

			sim := New(scene)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					sim.AddMetric(m)
				}
			}

			results[idx], errs[idx] = sim.Run(ctx, cfgCopy)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
