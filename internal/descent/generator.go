package descent

import (
	"context"
	"fmt"

	"github.com/san-kum/gdlab/internal/dataset"
)

// Generator runs batch gradient descent on mean-squared error and records
// every step.
type Generator struct {
	cfg       Config
	observers []Observer
}

func New(cfg Config) *Generator {
	return &Generator{cfg: cfg, observers: make([]Observer, 0)}
}

func (g *Generator) AddObserver(o Observer) { g.observers = append(g.observers, o) }

func (g *Generator) Config() Config { return g.cfg }

// Run computes the whole trajectory from init. For arity One the
// intercept of init is ignored and stays exactly zero.
func (g *Generator) Run(ctx context.Context, ds *dataset.Dataset, init Params) (*Trajectory, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	if ds == nil || ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	if g.cfg.Arity == One {
		init.Intercept = 0
	}

	traj := &Trajectory{
		Arity:     g.cfg.Arity,
		Initial:   init,
		Snapshots: make([]Snapshot, 0, g.cfg.Steps),
	}

	x, y := ds.X(), ds.Y()
	n := float64(len(x))
	lr := g.cfg.LearningRate
	m, b := init.Slope, init.Intercept

	for step := 1; step <= g.cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w at step %d: %w", ErrCanceled, step, ctx.Err())
		default:
		}

		var sumXR, sumR float64
		for i := range x {
			r := y[i] - (m*x[i] + b)
			sumXR += x[i] * r
			sumR += r
		}
		dm := (-2.0 / n) * sumXR
		m -= lr * dm
		if g.cfg.Arity == Two {
			db := (-2.0 / n) * sumR
			b -= lr * db
		} else {
			b = 0
		}

		p := Params{Slope: m, Intercept: b}
		snap := Snapshot{Step: step, Params: p, Loss: mse(x, y, p)}
		traj.Snapshots = append(traj.Snapshots, snap)

		for _, o := range g.observers {
			o.OnStep(snap)
		}
	}

	return traj, nil
}

// Generate is a convenience wrapper for a single run without observers.
func Generate(ctx context.Context, ds *dataset.Dataset, cfg Config, init Params) (*Trajectory, error) {
	return New(cfg).Run(ctx, ds, init)
}
