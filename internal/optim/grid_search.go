// Package optim sweeps descent hyperparameters over a grid and ranks the
// runs by one of the step metrics.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/san-kum/gdlab/internal/config"
	"github.com/san-kum/gdlab/internal/experiment"
	"gonum.org/v1/gonum/floats"
)

// Parameters understood by Apply.
const (
	LearningRate = "learning_rate"
	Steps        = "steps"
	NoiseStd     = "noise_std"
	NumPoints    = "n"
)

var (
	ErrUnknownParam = errors.New("optim: unknown parameter")
	ErrEmptyGrid    = errors.New("optim: empty grid")
	ErrBadRange     = errors.New("optim: malformed range")
	ErrNoResult     = errors.New("optim: no point produced a result")
)

// Point is one evaluated grid cell. Value is the metric as ranked:
// NaN, infinities and a never-reached convergence step rank as +Inf.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type Sweep struct {
	Metric string
	Points []Point
	Best   Point
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.NumCPU()}
}

// WithWorkers bounds the number of experiments run at once.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	if n < 1 {
		n = 1
	}
	g.workers = n
	return g
}

// Points lists the cartesian product of the ranges, first parameter
// varying slowest.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.collect(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		*out = append(*out, p)
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		g.collect(depth+1, current, out)
	}
	delete(current, name)
}

// Search runs one experiment per grid point and keeps the lowest metric.
// A point whose build or run fails is recorded with its error and never
// wins. Canceling ctx stops the sweep with the context error.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (*Sweep, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return nil, ErrEmptyGrid
	}
	for _, r := range g.ranges {
		if len(r) == 0 {
			return nil, ErrEmptyGrid
		}
	}

	grid := g.Points()
	points := make([]Point, len(grid))
	sem := make(chan struct{}, g.workers)

	var wg sync.WaitGroup
	for i, params := range grid {
		wg.Add(1)
		go func(idx int, params map[string]float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			points[idx] = evaluate(ctx, params, buildExperiment, metricName)
		}(i, params)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sweep := &Sweep{Metric: metricName, Points: points}
	found := false
	for _, p := range points {
		if p.Err != nil {
			continue
		}
		if !found || p.Value < sweep.Best.Value {
			sweep.Best = p
			found = true
		}
	}
	if !found {
		return sweep, ErrNoResult
	}
	return sweep, nil
}

func evaluate(
	ctx context.Context,
	params map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
) Point {
	pt := Point{Params: params, Value: math.Inf(1)}
	exp, err := buildExperiment(params)
	if err != nil {
		pt.Err = err
		return pt
	}
	result, err := exp.Run(ctx)
	if err != nil {
		pt.Err = err
		return pt
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		pt.Err = fmt.Errorf("optim: metric %q not reported", metricName)
		return pt
	}
	pt.Value = rank(metricName, val)
	return pt
}

func rank(metricName string, v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.Inf(1)
	}
	if metricName == "convergence_step" && v < 0 {
		return math.Inf(1)
	}
	return v
}

// Apply sets the named parameter on cfg.
func Apply(cfg *config.Config, name string, v float64) error {
	switch name {
	case LearningRate:
		cfg.Descent.LearningRate = v
	case Steps:
		cfg.Descent.Steps = int(math.Round(v))
	case NoiseStd:
		cfg.Data.NoiseStd = v
	case NumPoints:
		cfg.Data.N = int(math.Round(v))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}

// Builder returns a buildExperiment func that applies each grid point to
// a copy of base. Every point shares the seed, so points that leave the
// data parameters alone fit the same dataset.
func Builder(base *config.Config, seed int64) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		names := make([]string, 0, len(params))
		for k := range params {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if err := Apply(cfg, k, params[k]); err != nil {
				return nil, err
			}
		}
		return experiment.New(cfg, seed), nil
	}
}

// ParseRange reads either a comma separated list ("0.001,0.01,0.1") or
// an inclusive linear span "lo:hi:count".
func ParseRange(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadRange)
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrBadRange, s)
		}
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrBadRange, s, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("%w: count %d", ErrBadRange, n)
		}
		if n == 1 {
			return []float64{lo}, nil
		}
		return floats.Span(make([]float64, n), lo, hi), nil
	}
	var out []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrBadRange, s, err)
		}
		out = append(out, v)
	}
	return out, nil
}
