package playback

import (
	"math"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/limits"
)

const (
	surfaceGrid  = 220
	surfaceCurve = 400
)

// Surface is the loss landscape behind the parameter-space view: a
// grid over (slope, intercept) for arity two, a single MSE(slope) curve
// for arity one.
type Surface struct {
	Arity descent.Arity
	M     []float64
	// B is empty for arity one.
	B []float64
	// Z[j][i] is the MSE at (M[i], B[j]); arity one has a single row.
	Z        [][]float64
	min, max float64
}

func newSurface(ds *dataset.Dataset, arity descent.Arity, mr, br limits.Range) *Surface {
	mo := descent.MomentsOf(ds)
	s := &Surface{Arity: arity, min: math.Inf(1), max: math.Inf(-1)}

	if arity == descent.Two {
		s.M = dataset.Linspace(mr.Lo, mr.Hi, surfaceGrid)
		s.B = dataset.Linspace(br.Lo, br.Hi, surfaceGrid)
		s.Z = make([][]float64, len(s.B))
		for j, b := range s.B {
			row := make([]float64, len(s.M))
			for i, m := range s.M {
				row[i] = mo.MSE(m, b)
			}
			s.Z[j] = row
		}
	} else {
		s.M = dataset.Linspace(mr.Lo, mr.Hi, surfaceCurve)
		row := make([]float64, len(s.M))
		for i, m := range s.M {
			row[i] = mo.MSE(m, 0)
		}
		s.Z = [][]float64{row}
	}

	for _, row := range s.Z {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			s.min = math.Min(s.min, v)
			s.max = math.Max(s.max, v)
		}
	}
	if s.min > s.max {
		s.min, s.max = 0, 0
	}
	return s
}

// Curve returns the MSE(slope) samples of an arity-one surface.
func (s *Surface) Curve() []float64 { return s.Z[0] }

// Flat reports whether the surface has no finite spread, which is also
// true of a nil surface.
func (s *Surface) Flat() bool { return s == nil || !(s.max > s.min) }

func (s *Surface) Range() limits.Range { return limits.Range{Lo: s.min, Hi: s.max} }

// Band maps a loss value to one of n contour bands, spaced on a log scale
// so the basin around the minimum keeps detail. NaN and +Inf fall in the
// top band.
func (s *Surface) Band(v float64, n int) int {
	if n <= 1 || s.max <= s.min {
		return 0
	}
	if math.IsNaN(v) || v > s.max {
		return n - 1
	}
	lo, hi := math.Log1p(s.min), math.Log1p(s.max)
	if !(hi > lo) || math.IsInf(hi, 0) {
		return 0
	}
	t := (math.Log1p(math.Max(v, s.min)) - lo) / (hi - lo)
	band := int(t * float64(n))
	if band >= n {
		band = n - 1
	}
	if band < 0 {
		band = 0
	}
	return band
}

// Levels returns n loss values at the band boundaries.
func (s *Surface) Levels(n int) []float64 {
	if n < 1 {
		return nil
	}
	lo, hi := math.Log1p(s.min), math.Log1p(s.max)
	out := make([]float64, n)
	for i := range out {
		t := float64(i+1) / float64(n+1)
		out[i] = math.Expm1(lo + t*(hi-lo))
	}
	return out
}
