// Package limits derives padded axis ranges for the playback views.
package limits

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Range is a closed interval [Lo, Hi].
type Range struct {
	Lo, Hi float64
}

func (r Range) Span() float64 { return r.Hi - r.Lo }

// Finite reports whether both ends and the span are finite and ordered.
func (r Range) Finite() bool {
	return isFinite(r.Lo) && isFinite(r.Hi) && isFinite(r.Span()) && r.Lo <= r.Hi
}

// Or returns r when it is Finite and fallback otherwise.
func (r Range) Or(fallback Range) Range {
	if r.Finite() {
		return r
	}
	return fallback
}

// Contains reports whether v lies inside r.
func (r Range) Contains(v float64) bool { return v >= r.Lo && v <= r.Hi }

// Clamp intersects r with global so the result never extends past it.
// If the two do not overlap the global range is returned.
func (r Range) Clamp(global Range) Range {
	out := Range{Lo: math.Max(r.Lo, global.Lo), Hi: math.Min(r.Hi, global.Hi)}
	if out.Lo > out.Hi {
		return global
	}
	return out
}

// Union is the smallest range covering both.
func (r Range) Union(o Range) Range {
	return Range{Lo: math.Min(r.Lo, o.Lo), Hi: math.Max(r.Hi, o.Hi)}
}

// Padded widens [lo, hi] by frac of its span, but by at least minPad.
// If the padding would overflow, [lo, hi] is returned unpadded.
func Padded(lo, hi, frac, minPad float64) Range {
	pad := math.Max(frac*math.Max(hi-lo, 1e-12), minPad)
	return widen(lo, hi, pad, pad)
}

func widen(lo, hi, loPad, hiPad float64) Range {
	r := Range{Lo: lo - loPad, Hi: hi + hiPad}
	if !r.Finite() {
		return Range{Lo: lo, Hi: hi}
	}
	return r
}

// Of returns the min/max of the finite values in vals. NaN and
// infinities are skipped; with nothing left it yields the zero range.
func Of(vals ...float64) Range {
	r, _ := FiniteOf(vals...)
	return r
}

// FiniteOf is Of that also reports whether any value was finite.
func FiniteOf(vals ...float64) (Range, bool) {
	kept := make([]float64, 0, len(vals))
	for _, v := range vals {
		if isFinite(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return Range{}, false
	}
	return Range{Lo: floats.Min(kept), Hi: floats.Max(kept)}, true
}

// FinitePrefix returns vals up to, not including, the first NaN or
// infinity.
func FinitePrefix(vals []float64) []float64 {
	for i, v := range vals {
		if !isFinite(v) {
			return vals[:i]
		}
	}
	return vals
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Data pads the scatter extents: x by 3% (at least 0.5), y by 10% (at least 1).
func Data(x, y []float64) (xr, yr Range) {
	xs, ys := Of(x...), Of(y...)
	return Padded(xs.Lo, xs.Hi, 0.03, 0.5), Padded(ys.Lo, ys.Hi, 0.10, 1.0)
}

// Contour bounds the (slope, intercept) plane around two corner points,
// padding by 30% of the covered span or a data-derived minimum,
// whichever is larger.
func Contour(x, y []float64, m0, b0, m1, b1 float64) (mr, br Range) {
	xSpan := math.Max(Of(x...).Span(), 1e-6)
	ySpan := math.Max(Of(y...).Span(), 1e-6)
	slopeScale := ySpan / xSpan

	mLo, mHi := math.Min(m0, m1), math.Max(m0, m1)
	bLo, bHi := math.Min(b0, b1), math.Max(b0, b1)
	mPad := math.Max(0.3*(mHi-mLo), 0.8*slopeScale)
	bPad := math.Max(0.3*(bHi-bLo), 0.8*ySpan)
	return widen(mLo, mHi, mPad, mPad), widen(bLo, bHi, bPad, bPad)
}

// Curve pads a 1-D value set by 8% (at least 0.6).
func Curve(vals []float64) Range {
	r := Of(vals...)
	return Padded(r.Lo, r.Hi, 0.08, 0.6)
}
