package playback

import (
	"math"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/limits"
)

// Bounds are the axis ranges of the four views. Fit and history share
// FitX/FitY.
type Bounds struct {
	FitX, FitY   limits.Range
	PathX, PathY limits.Range
	LossX, LossY limits.Range
}

// globalBounds is everything derived once from the whole trajectory.
type globalBounds struct {
	fixed Bounds
	// fitY covers the data and every visited line, the ceiling for the
	// dynamic fit range.
	fitY limits.Range
}

// computeGlobalBounds skips non-finite values, so a diverging run still
// gets finite axes. When the visited parameters span so far that the
// loss surface overflows everywhere, the parameter view falls back to
// the region around the starting point and the reference fit.
func computeGlobalBounds(ds *dataset.Dataset, traj *descent.Trajectory, ref descent.Fit) (globalBounds, *Surface) {
	x, y := ds.X(), ds.Y()
	xLo, xHi := ds.XRange()
	_, dataY := limits.Data(x, y)

	var b Bounds
	b.FitX = limits.Range{Lo: xLo, Hi: xHi}
	b.FitY = dataY

	var surf *Surface
	init := traj.Initial
	mAll := append(traj.Slopes(), ref.Params.Slope, init.Slope)
	if traj.Arity == descent.Two {
		bAll := append(traj.Intercepts(), ref.Params.Intercept, init.Intercept)
		m, bb := limits.Of(mAll...), limits.Of(bAll...)
		b.PathX, b.PathY = limits.Contour(x, y, m.Lo, bb.Lo, m.Hi, bb.Hi)
		if b.PathX.Finite() && b.PathY.Finite() {
			surf = newSurface(ds, traj.Arity, b.PathX, b.PathY)
		}
		if surf.Flat() {
			b.PathX, b.PathY = limits.Contour(x, y, ref.Params.Slope, ref.Params.Intercept, init.Slope, init.Intercept)
			surf = newSurface(ds, traj.Arity, b.PathX, b.PathY)
		}
	} else {
		b.PathX = limits.Curve(mAll)
		if b.PathX.Finite() {
			surf = newSurface(ds, traj.Arity, b.PathX, limits.Range{})
		}
		if surf.Flat() {
			b.PathX = limits.Curve([]float64{ref.Params.Slope, init.Slope})
			surf = newSurface(ds, traj.Arity, b.PathX, limits.Range{})
		}
		b.PathY = limits.Curve(surf.Curve())
	}

	losses := traj.Losses()
	lr := limits.Of(losses...)
	b.LossX = limits.Range{Lo: 1, Hi: float64(traj.Len())}
	b.LossY = limits.Padded(lr.Lo, lr.Hi, 0.08, 0).Or(limits.Curve([]float64{ref.Loss, descent.MSE(ds, init)}))

	fitY := dataY
	for _, s := range traj.Snapshots {
		if lr, ok := lineRange(s.Params, xLo, xHi); ok {
			fitY = fitY.Union(lr)
		}
	}
	if lr, ok := lineRange(init, xLo, xHi); ok {
		fitY = fitY.Union(lr)
	}
	fitY = limits.Padded(fitY.Lo, fitY.Hi, 0.08, 0.6).Or(dataY)

	return globalBounds{fixed: b, fitY: fitY}, surf
}

// lineRange is the y extent of p over [xLo, xHi]; ok is false when the
// line has no finite end.
func lineRange(p descent.Params, xLo, xHi float64) (limits.Range, bool) {
	return limits.FiniteOf(p.Predict(xLo), p.Predict(xHi))
}

// dynamicBounds derives ranges from steps 1..k only, each clamped so it
// never extends past the global range.
func (r *Renderer) dynamicBounds(k int) Bounds {
	g := r.global
	b := g.fixed
	prefix := r.traj.Prefix(k)
	cur := prefix[len(prefix)-1].Params

	yLo, yHi := r.yRange.Lo, r.yRange.Hi
	if line, ok := lineRange(cur, r.xRange.Lo, r.xRange.Hi); ok {
		yLo, yHi = math.Min(yLo, line.Lo), math.Max(yHi, line.Hi)
	}
	b.FitY = limits.Padded(yLo, yHi, 0.08, 0.6).Clamp(g.fitY)

	mSeen := make([]float64, 0, k+1)
	for _, s := range prefix {
		mSeen = append(mSeen, s.Params.Slope)
	}
	mSeen = append(mSeen, r.ref.Params.Slope)

	if r.traj.Arity == descent.Two {
		bSeen := make([]float64, 0, k+1)
		for _, s := range prefix {
			bSeen = append(bSeen, s.Params.Intercept)
		}
		bSeen = append(bSeen, r.ref.Params.Intercept)
		m, bb := limits.Of(mSeen...), limits.Of(bSeen...)
		px, py := limits.Contour(r.x, r.y, m.Lo, bb.Lo, m.Hi, bb.Hi)
		b.PathX, b.PathY = px.Clamp(g.fixed.PathX), py.Clamp(g.fixed.PathY)
	} else {
		lSeen := make([]float64, 0, k+1)
		for _, s := range prefix {
			lSeen = append(lSeen, s.Loss)
		}
		lSeen = append(lSeen, r.ref.Loss)
		b.PathX = limits.Curve(mSeen).Clamp(g.fixed.PathX)
		b.PathY = limits.Curve(lSeen).Clamp(g.fixed.PathY)
	}

	b.LossX = limits.Range{Lo: 1, Hi: float64(max(2, k))}
	lr := limits.Of(r.losses[:k]...)
	b.LossY = limits.Padded(lr.Lo, lr.Hi, 0.05, 0).Clamp(g.fixed.LossY)
	return b
}
