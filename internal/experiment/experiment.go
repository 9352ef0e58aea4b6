// Package experiment runs the whole pipeline for one configuration:
// data, starting point, descent, reference fit and metrics.
package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/san-kum/gdlab/internal/config"
	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/metrics"
	"github.com/san-kum/gdlab/internal/playback"
	"github.com/san-kum/gdlab/internal/storage"
)

type Experiment struct {
	cfg        *config.Config
	seed       int64
	randSource *rand.Rand
	observers  []descent.Observer
}

// Result is a finished run. Everything in it is read-only.
type Result struct {
	Seed       int64
	Config     *config.Config
	Dataset    *dataset.Dataset
	Trajectory *descent.Trajectory
	Reference  descent.Fit
	Metrics    map[string]float64
}

// New prepares a run. The same config and seed always give a
// bit-identical trajectory.
func New(cfg *config.Config, seed int64) *Experiment {
	return &Experiment{
		cfg:        cfg,
		seed:       seed,
		randSource: rand.New(rand.NewSource(seed)),
	}
}

// AddObserver registers o for every step of the descent.
func (e *Experiment) AddObserver(o descent.Observer) {
	e.observers = append(e.observers, o)
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := dataset.Generate(e.cfg.DatasetSpec(), e.randSource)
	if err != nil {
		return nil, fmt.Errorf("generate dataset: %w", err)
	}
	return e.fit(ctx, ds)
}

func (e *Experiment) fit(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	arity := e.cfg.Arity()
	init := descent.InitialParams(ds, arity, e.randSource, e.cfg.Descent.InitSlope, e.cfg.Descent.InitIntercept)
	ref := descent.ReferenceFit(ds, arity)

	set := metrics.Standard(ref)
	gen := descent.New(e.cfg.DescentConfig())
	gen.AddObserver(set)
	for _, o := range e.observers {
		gen.AddObserver(o)
	}

	traj, err := gen.Run(ctx, ds, init)
	if err != nil {
		return nil, err
	}
	return &Result{
		Seed:       e.seed,
		Config:     e.cfg,
		Dataset:    ds,
		Trajectory: traj,
		Reference:  ref,
		Metrics:    set.Values(),
	}, nil
}

// Renderer builds the playback renderer using the config's view options.
func (r *Result) Renderer() *playback.Renderer {
	return playback.NewRenderer(r.Dataset, r.Trajectory, r.Reference, r.Config.PlaybackOptions())
}

// StorageRun packages the result for storage.Store.Save.
func (r *Result) StorageRun(name string) storage.Run {
	return storage.Run{
		Name:       name,
		Seed:       r.Seed,
		Data:       r.Config.DatasetSpec(),
		Config:     r.Config.DescentConfig(),
		Dataset:    r.Dataset,
		Trajectory: r.Trajectory,
		Reference:  r.Reference,
		Metrics:    r.Metrics,
	}
}

// SplitResult is a run fitted on the training share of the data.
type SplitResult struct {
	*Result
	Train, Test *dataset.Dataset
	// GD scores the final descent step, OLS the reference fit.
	GD  metrics.TrainTest
	OLS metrics.TrainTest
}

// RunSplit holds out testFrac of the generated data, runs the descent on
// the rest and scores both the descent and the reference fit on each half.
func (e *Experiment) RunSplit(ctx context.Context, testFrac float64) (*SplitResult, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := dataset.Generate(e.cfg.DatasetSpec(), e.randSource)
	if err != nil {
		return nil, fmt.Errorf("generate dataset: %w", err)
	}
	train, test, err := ds.Split(testFrac, e.randSource)
	if err != nil {
		return nil, err
	}
	res, err := e.fit(ctx, train)
	if err != nil {
		return nil, err
	}
	return &SplitResult{
		Result: res,
		Train:  train,
		Test:   test,
		GD:     metrics.EvaluateSplit(train, test, res.Trajectory.Final().Params),
		OLS:    metrics.EvaluateSplit(train, test, res.Reference.Params),
	}, nil
}
