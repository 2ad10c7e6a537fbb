// Package optim sweeps scene parameters to find the setting that minimises
// a run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/clothsim/internal/sim"
)

var ErrNoTrials = errors.New("optim: no trial completed")

// Build turns one parameter assignment into a ready simulator and the run
// configuration to use with it.
type Build func(params map[string]float64) (*sim.Simulator, sim.Config, error)

// Trial is the outcome of one grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	trials     []Trial
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Trials returns every grid point of the last search in visiting order.
func (g *GridSearch) Trials() []Trial { return g.trials }

// Search runs every grid point and returns the parameters with the lowest
// value of metricName. Failed points are kept in Trials and skipped.
func (g *GridSearch) Search(ctx context.Context, build Build, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	g.trials = g.trials[:0]

	best := math.Inf(1)
	var bestParams map[string]float64

	g.searchRecursive(ctx, 0, make(map[string]float64), build, metricName, &best, &bestParams)

	if err := ctx.Err(); err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoTrials
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build Build,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) {
	if ctx.Err() != nil {
		return
	}
	if depth == len(g.paramNames) {
		trial := Trial{Params: current, Value: math.NaN()}
		defer func() { g.trials = append(g.trials, trial) }()

		s, cfg, err := build(current)
		if err != nil {
			trial.Err = err
			return
		}
		result, err := s.Run(ctx, cfg)
		if err != nil {
			trial.Err = err
			return
		}
		val, ok := result.Metrics[metricName]
		if !ok {
			trial.Err = fmt.Errorf("optim: metric %q not reported", metricName)
			return
		}
		if len(result.Errors) > 0 {
			trial.Err = result.Errors[0]
			return
		}

		trial.Value = val
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(ctx, depth+1, newParams, build, metricName, best, bestParams)
	}
}
