package playback

import (
	"fmt"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/limits"
)

type Options struct {
	// HistoryMax caps the retained history lines; 0 keeps every sampled step.
	HistoryMax int
	// HistoryStride samples every n-th step into the history view.
	HistoryStride int
	// DynamicLimits recomputes axis ranges from the visited prefix.
	DynamicLimits bool
}

type Point struct {
	X, Y float64
}

// Line is a fitted line clipped to the data's x extent.
type Line struct {
	From, To Point
}

type HistoryLine struct {
	Step   int
	Params descent.Params
	Line   Line
	// Alpha fades from 0.15 (oldest retained) towards 0.95 (current step).
	Alpha float64
}

// Frame is everything needed to draw one playback position. It is a pure
// function of the trajectory, the position and the limit mode.
type Frame struct {
	Step, Steps int
	Arity       descent.Arity
	Current     descent.Snapshot
	Reference   descent.Fit
	Fit         Line
	RefLine     Line
	History     []HistoryLine
	// Path is (slope, intercept) for arity two and (slope, loss) for arity one.
	Path   []Point
	Loss   []Point
	Bounds Bounds
	Title  [2]string
}

// Renderer turns positions into frames. Everything that depends only on
// the whole trajectory is computed once in NewRenderer.
type Renderer struct {
	ds      *dataset.Dataset
	traj    *descent.Trajectory
	ref     descent.Fit
	opts    Options
	x, y    []float64
	xRange  limits.Range
	yRange  limits.Range
	losses  []float64
	global  globalBounds
	surface *Surface
}

func NewRenderer(ds *dataset.Dataset, traj *descent.Trajectory, ref descent.Fit, opts Options) *Renderer {
	if opts.HistoryStride < 1 {
		opts.HistoryStride = 1
	}
	if opts.HistoryMax <= 0 {
		opts.HistoryMax = traj.Len()
	}
	r := &Renderer{
		ds:     ds,
		traj:   traj,
		ref:    ref,
		opts:   opts,
		x:      ds.X(),
		y:      ds.Y(),
		losses: traj.Losses(),
	}
	r.xRange = limits.Of(r.x...)
	r.yRange = limits.Of(r.y...)
	r.global, r.surface = computeGlobalBounds(ds, traj, ref)
	return r
}

func (r *Renderer) Options() Options                { return r.opts }
func (r *Renderer) Dataset() *dataset.Dataset       { return r.ds }
func (r *Renderer) Trajectory() *descent.Trajectory { return r.traj }
func (r *Renderer) Reference() descent.Fit          { return r.ref }
func (r *Renderer) Surface() *Surface               { return r.surface }

// FixedBounds are the global ranges used when dynamic limits are off.
func (r *Renderer) FixedBounds() Bounds { return r.global.fixed }

// FitYCeiling is the widest fit-panel y range dynamic mode may use: the
// data and every line the trajectory visits. It contains FixedBounds().FitY.
func (r *Renderer) FitYCeiling() limits.Range { return r.global.fitY }

// SetDynamicLimits switches the limit mode for subsequent frames.
func (r *Renderer) SetDynamicLimits(on bool) { r.opts.DynamicLimits = on }

// Frame renders step k, clamped to [1, Steps].
func (r *Renderer) Frame(k int) Frame {
	n := r.traj.Len()
	k = min(max(k, 1), n)
	cur := r.traj.At(k)

	f := Frame{
		Step:      k,
		Steps:     n,
		Arity:     r.traj.Arity,
		Current:   cur,
		Reference: r.ref,
		Fit:       r.line(cur.Params),
		RefLine:   r.line(r.ref.Params),
	}

	idx := HistoryIndices(k, r.opts.HistoryStride, r.opts.HistoryMax)
	f.History = make([]HistoryLine, len(idx))
	for i, step := range idx {
		p := r.traj.At(step).Params
		f.History[i] = HistoryLine{
			Step:   step,
			Params: p,
			Line:   r.line(p),
			Alpha:  0.15 + 0.8*float64(i+1)/float64(max(len(idx), 1)),
		}
	}

	prefix := r.traj.Prefix(k)
	f.Path = make([]Point, len(prefix))
	f.Loss = make([]Point, len(prefix))
	for i, s := range prefix {
		if r.traj.Arity == descent.Two {
			f.Path[i] = Point{X: s.Params.Slope, Y: s.Params.Intercept}
		} else {
			f.Path[i] = Point{X: s.Params.Slope, Y: s.Loss}
		}
		f.Loss[i] = Point{X: float64(s.Step), Y: s.Loss}
	}

	if r.opts.DynamicLimits {
		f.Bounds = r.dynamicBounds(k)
	} else {
		f.Bounds = r.global.fixed
	}
	f.Title = Title(k, n, r.traj.Arity, cur.Params, r.ref.Params)
	return f
}

func (r *Renderer) line(p descent.Params) Line {
	return Line{
		From: Point{X: r.xRange.Lo, Y: p.Predict(r.xRange.Lo)},
		To:   Point{X: r.xRange.Hi, Y: p.Predict(r.xRange.Hi)},
	}
}

// HistoryIndices samples steps 1, 1+stride, ... up to k, always ending at
// k, and keeps the last maxLines of them.
func HistoryIndices(k, stride, maxLines int) []int {
	if k < 1 {
		return nil
	}
	stride = max(stride, 1)
	idx := make([]int, 0, k/stride+2)
	for i := 1; i <= k; i += stride {
		idx = append(idx, i)
	}
	if idx[len(idx)-1] != k {
		idx = append(idx, k)
	}
	if maxLines > 0 && len(idx) > maxLines {
		idx = idx[len(idx)-maxLines:]
	}
	return idx
}

// Title returns the two fixed-width header lines.
func Title(k, steps int, arity descent.Arity, cur, target descent.Params) [2]string {
	width := len(fmt.Sprintf("iter %d/%d", steps, steps))
	width = max(width, len("target (OLS)"))
	format := func(p descent.Params) string {
		if arity == descent.Two {
			return fmt.Sprintf("(%7.3f, %7.3f)", p.Slope, p.Intercept)
		}
		return fmt.Sprintf("(%7.3f)", p.Slope)
	}
	iter := fmt.Sprintf("iter %d/%d", k, steps)
	return [2]string{
		fmt.Sprintf("%-*s | %s = %s", width, iter, arity, format(cur)),
		fmt.Sprintf("%-*s | %s = %s", width, "target (OLS)", arity, format(target)),
	}
}
