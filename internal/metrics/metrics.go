// Package metrics summarizes a gradient descent run.
package metrics

import (
	"math"

	"github.com/san-kum/gdlab/internal/descent"
)

// Metric accumulates a value over the snapshots of a run. Every metric
// is also a descent.Observer.
type Metric interface {
	Name() string
	Observe(s descent.Snapshot)
	Value() float64
	Reset()
}

// Set fans steps out to several metrics.
type Set []Metric

// Standard returns the metrics recorded with every saved run.
func Standard(ref descent.Fit) Set {
	return Set{
		NewFinalLoss(),
		NewLossReduction(),
		NewOLSGap(ref),
		NewLossGap(ref),
		NewConvergence(ref, DefaultTolerance),
	}
}

func (s Set) OnStep(snap descent.Snapshot) {
	for _, m := range s {
		m.Observe(snap)
	}
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}

// Replay feeds a finished trajectory through the set.
func (s Set) Replay(traj *descent.Trajectory) map[string]float64 {
	s.Reset()
	for _, snap := range traj.Snapshots {
		s.OnStep(snap)
	}
	return s.Values()
}

type FinalLoss struct {
	name    string
	loss    float64
	samples int
}

func NewFinalLoss() *FinalLoss { return &FinalLoss{name: "final_loss"} }

func (f *FinalLoss) Name() string { return f.name }

func (f *FinalLoss) Observe(s descent.Snapshot) {
	f.loss = s.Loss
	f.samples++
}

func (f *FinalLoss) OnStep(s descent.Snapshot) { f.Observe(s) }

func (f *FinalLoss) Value() float64 { return f.loss }

func (f *FinalLoss) Reset() {
	f.loss = 0
	f.samples = 0
}

// LossReduction is the fraction of the first recorded loss removed by the
// last recorded step.
type LossReduction struct {
	name        string
	first, last float64
	samples     int
}

func NewLossReduction() *LossReduction { return &LossReduction{name: "loss_reduction"} }

func (l *LossReduction) Name() string { return l.name }

func (l *LossReduction) Observe(s descent.Snapshot) {
	if l.samples == 0 {
		l.first = s.Loss
	}
	l.last = s.Loss
	l.samples++
}

func (l *LossReduction) OnStep(s descent.Snapshot) { l.Observe(s) }

func (l *LossReduction) Value() float64 {
	if l.samples == 0 || l.first == 0 {
		return 0
	}
	return (l.first - l.last) / l.first
}

func (l *LossReduction) Reset() {
	l.first, l.last = 0, 0
	l.samples = 0
}

// OLSGap is the parameter-space distance between the latest step and
// the least-squares solution.
type OLSGap struct {
	name string
	ref  descent.Params
	gap  float64
}

func NewOLSGap(ref descent.Fit) *OLSGap { return &OLSGap{name: "ols_gap", ref: ref.Params} }

func (o *OLSGap) Name() string { return o.name }

func (o *OLSGap) Observe(s descent.Snapshot) { o.gap = s.Params.Distance(o.ref) }

func (o *OLSGap) OnStep(s descent.Snapshot) { o.Observe(s) }

func (o *OLSGap) Value() float64 { return o.gap }

func (o *OLSGap) Reset() { o.gap = 0 }

// LossGap is the excess of the latest loss over the least-squares loss.
type LossGap struct {
	name    string
	refLoss float64
	gap     float64
}

func NewLossGap(ref descent.Fit) *LossGap { return &LossGap{name: "loss_gap", refLoss: ref.Loss} }

func (l *LossGap) Name() string { return l.name }

func (l *LossGap) Observe(s descent.Snapshot) { l.gap = s.Loss - l.refLoss }

func (l *LossGap) OnStep(s descent.Snapshot) { l.Observe(s) }

func (l *LossGap) Value() float64 { return l.gap }

func (l *LossGap) Reset() { l.gap = 0 }

// DefaultTolerance is the relative excess loss at which a run counts as
// converged.
const DefaultTolerance = 1e-3

// Convergence records the first step whose excess over the least-squares
// loss is at most tol times max(refLoss, 1); -1 until that happens.
type Convergence struct {
	name    string
	refLoss float64
	tol     float64
	step    int
}

func NewConvergence(ref descent.Fit, tol float64) *Convergence {
	return &Convergence{name: "convergence_step", refLoss: ref.Loss, tol: tol, step: -1}
}

func (c *Convergence) Name() string { return c.name }

func (c *Convergence) Observe(s descent.Snapshot) {
	if c.step >= 0 {
		return
	}
	excess := (s.Loss - c.refLoss) / math.Max(c.refLoss, 1)
	if excess <= c.tol {
		c.step = s.Step
	}
}

func (c *Convergence) OnStep(s descent.Snapshot) { c.Observe(s) }

func (c *Convergence) Value() float64 { return float64(c.step) }

func (c *Convergence) Reset() { c.step = -1 }
