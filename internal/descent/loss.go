package descent

import "github.com/san-kum/gdlab/internal/dataset"

// MSE is the mean squared error of p over the dataset.
func MSE(ds *dataset.Dataset, p Params) float64 {
	return mse(ds.X(), ds.Y(), p)
}

func mse(x, y []float64, p Params) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for i := range x {
		r := p.Predict(x[i]) - y[i]
		sum += r * r
	}
	return sum / float64(len(x))
}

// Moments are the sufficient statistics of a dataset for evaluating MSE
// at any (m, b) in constant time:
//
//	MSE(m, b) = (m²Σx² + 2mbΣx + nb² − 2mΣxy − 2bΣy + Σy²) / n
type Moments struct {
	N, Sx, Sy, Sxx, Sxy, Syy float64
}

func MomentsOf(ds *dataset.Dataset) Moments {
	var mo Moments
	ds.Each(func(x, y float64) {
		mo.N++
		mo.Sx += x
		mo.Sy += y
		mo.Sxx += x * x
		mo.Sxy += x * y
		mo.Syy += y * y
	})
	return mo
}

func (mo Moments) MSE(m, b float64) float64 {
	if mo.N == 0 {
		return 0
	}
	v := m*m*mo.Sxx + 2*m*b*mo.Sx + mo.N*b*b - 2*m*mo.Sxy - 2*b*mo.Sy + mo.Syy
	if v < 0 {
		// cancellation near the optimum
		v = 0
	}
	return v / mo.N
}
