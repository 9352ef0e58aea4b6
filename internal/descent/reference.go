package descent

import (
	"fmt"
	"math"

	"github.com/san-kum/gdlab/internal/dataset"
	"gonum.org/v1/gonum/mat"
)

// ReferenceFit is the closed-form least-squares target for the model.
func ReferenceFit(ds *dataset.Dataset, arity Arity) Fit {
	var p Params
	if arity == One {
		mo := MomentsOf(ds)
		p.Slope = mo.Sxy / math.Max(mo.Sxx, 1e-12)
	} else {
		var err error
		if p, err = LeastSquares(ds); err != nil {
			p = momentFit(MomentsOf(ds))
		}
	}
	return Fit{Params: p, Loss: MSE(ds, p)}
}

// LeastSquares solves min ||Aβ − y|| for the design matrix A = [1, x]
// with a QR (or LQ, for a single point) factorization.
func LeastSquares(ds *dataset.Dataset) (Params, error) {
	n := ds.Len()
	a := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		x, _ := ds.At(i)
		a.Set(i, 0, 1)
		a.Set(i, 1, x)
	}
	y := mat.NewVecDense(n, ds.Y())

	var beta mat.VecDense
	if err := beta.SolveVec(a, y); err != nil {
		return Params{}, fmt.Errorf("descent: least squares: %w", err)
	}
	p := Params{Intercept: beta.AtVec(0), Slope: beta.AtVec(1)}
	if !finite(p.Slope) || !finite(p.Intercept) {
		return Params{}, fmt.Errorf("descent: least squares produced non-finite solution")
	}
	return p, nil
}

// NormalEquations computes β = (XᵀX)⁻¹Xᵀy explicitly.
func NormalEquations(ds *dataset.Dataset) (Params, error) {
	n := ds.Len()
	x := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		xi, _ := ds.At(i)
		x.Set(i, 0, 1)
		x.Set(i, 1, xi)
	}
	y := mat.NewVecDense(n, ds.Y())

	var xtx, inv mat.Dense
	xtx.Mul(x.T(), x)
	if err := inv.Inverse(&xtx); err != nil {
		return Params{}, fmt.Errorf("descent: normal equations: %w", err)
	}
	var xty, beta mat.VecDense
	xty.MulVec(x.T(), y)
	beta.MulVec(&inv, &xty)
	return Params{Intercept: beta.AtVec(0), Slope: beta.AtVec(1)}, nil
}

func momentFit(mo Moments) Params {
	if mo.N == 0 {
		return Params{}
	}
	mx, my := mo.Sx/mo.N, mo.Sy/mo.N
	varX := mo.Sxx/mo.N - mx*mx
	cov := mo.Sxy/mo.N - mx*my
	slope := 0.0
	if varX >= 1e-12 {
		slope = cov / varX
	}
	return Params{Slope: slope, Intercept: my - slope*mx}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
