package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
)

// Evaluation scores fitted parameters on one dataset.
type Evaluation struct {
	N    int     `json:"n"`
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

func Evaluate(ds *dataset.Dataset, p descent.Params) Evaluation {
	x, y := ds.X(), ds.Y()
	pred := make([]float64, len(x))
	for i, xi := range x {
		pred[i] = p.Predict(xi)
	}
	mse := descent.MSE(ds, p)
	ev := Evaluation{N: len(x), MSE: mse, RMSE: math.Sqrt(mse)}

	// R² is undefined for a constant target; report a perfect score only
	// for an exact fit.
	if len(y) < 2 || stat.Variance(y, nil) == 0 {
		if mse == 0 {
			ev.R2 = 1
		}
		return ev
	}
	ev.R2 = stat.RSquaredFrom(pred, y, nil)
	return ev
}

// TrainTest is the evaluation of one parameter point on both halves of
// a split.
type TrainTest struct {
	Train Evaluation `json:"train"`
	Test  Evaluation `json:"test"`
}

func EvaluateSplit(train, test *dataset.Dataset, p descent.Params) TrainTest {
	return TrainTest{Train: Evaluate(train, p), Test: Evaluate(test, p)}
}

// StatFit is the ordinary least-squares line from gonum's stat package,
// used to cross-check the matrix solution.
func StatFit(ds *dataset.Dataset, arity descent.Arity) descent.Params {
	alpha, beta := stat.LinearRegression(ds.X(), ds.Y(), nil, arity == descent.One)
	return descent.Params{Slope: beta, Intercept: alpha}
}
