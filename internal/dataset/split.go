package dataset

import (
	"fmt"
	"math/rand"
)

// Split shuffles the points with rng and holds out testFrac of them.
// Both halves keep at least one point.
func (d *Dataset) Split(testFrac float64, rng *rand.Rand) (train, test *Dataset, err error) {
	if testFrac <= 0 || testFrac >= 1 {
		return nil, nil, fmt.Errorf("dataset: test fraction must be in (0, 1), got %g", testFrac)
	}
	n := d.Len()
	if n < 2 {
		return nil, nil, fmt.Errorf("dataset: need at least 2 points to split, have %d", n)
	}

	nTest := int(float64(n)*testFrac + 0.5)
	if nTest < 1 {
		nTest = 1
	}
	if nTest > n-1 {
		nTest = n - 1
	}

	perm := rng.Perm(n)
	pick := func(idx []int) *Dataset {
		x := make([]float64, len(idx))
		y := make([]float64, len(idx))
		for i, j := range idx {
			x[i], y[i] = d.x[j], d.y[j]
		}
		return &Dataset{x: x, y: y}
	}
	return pick(perm[nTest:]), pick(perm[:nTest]), nil
}
