package descent

import (
	"math/rand"

	"github.com/san-kum/gdlab/internal/dataset"
)

// InitialParams picks the starting point. Explicit values win; missing
// ones are drawn from rng, scaled to the data: slope from
// U(-3s, 3s) with s = ptp(y)/ptp(x), intercept from
// U(min(y) - 1.5 ptp(y), max(y) + 1.5 ptp(y)). Slope is always drawn
// first so a fixed seed reproduces both.
func InitialParams(ds *dataset.Dataset, arity Arity, rng *rand.Rand, slope, intercept *float64) Params {
	var p Params

	s := ds.SlopeScale()
	if slope != nil {
		p.Slope = *slope
	} else {
		p.Slope = uniform(rng, -3*s, 3*s)
	}

	if arity != Two {
		return p
	}
	if intercept != nil {
		p.Intercept = *intercept
		return p
	}
	lo, hi := ds.YRange()
	span := ds.YSpan()
	p.Intercept = uniform(rng, lo-1.5*span, hi+1.5*span)
	return p
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}
