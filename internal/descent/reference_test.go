package descent

import (
	"math"
	"math/rand"
	"testing"
)

func TestReferenceFit_ArityOne(t *testing.T) {
	ds := mustDataset(t, []float64{1, 2, 3}, []float64{2, 4, 6})
	fit := ReferenceFit(ds, One)
	if fit.Params.Slope != 2.0 {
		t.Errorf("expected slope exactly 2, got %v", fit.Params.Slope)
	}
	if fit.Params.Intercept != 0 {
		t.Errorf("expected intercept 0, got %v", fit.Params.Intercept)
	}
	if fit.Loss != 0 {
		t.Errorf("expected zero loss, got %v", fit.Loss)
	}
}

func TestReferenceFit_ArityOneZeroDenominator(t *testing.T) {
	ds := mustDataset(t, []float64{0, 0}, []float64{1, 3})
	fit := ReferenceFit(ds, One)
	if fit.Params.Slope != 0 || math.IsNaN(fit.Loss) {
		t.Errorf("expected guarded slope 0, got %+v", fit)
	}
}

func TestReferenceFit_ArityTwo(t *testing.T) {
	ds := mustDataset(t, []float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
	fit := ReferenceFit(ds, Two)
	if math.Abs(fit.Params.Slope-2) > 1e-9 || math.Abs(fit.Params.Intercept-1) > 1e-9 {
		t.Errorf("expected (2, 1), got %+v", fit.Params)
	}
}

func TestReferenceFit_ZeroVarianceX(t *testing.T) {
	ds := mustDataset(t, []float64{1, 1, 1}, []float64{1, 2, 3})
	fit := ReferenceFit(ds, Two)
	if math.IsNaN(fit.Params.Slope) || math.IsNaN(fit.Params.Intercept) {
		t.Fatalf("expected finite fit, got %+v", fit.Params)
	}
	if math.Abs(fit.Params.Predict(1)-2) > 1e-9 {
		t.Errorf("expected fit through mean y=2 at x=1, got %f", fit.Params.Predict(1))
	}
}

func TestReferenceFit_MinimisesLoss(t *testing.T) {
	ds := noisyDataset(t, 11)
	fit := ReferenceFit(ds, Two)
	for _, d := range []Params{{0.01, 0}, {-0.01, 0}, {0, 0.01}, {0, -0.01}} {
		p := Params{Slope: fit.Params.Slope + d.Slope, Intercept: fit.Params.Intercept + d.Intercept}
		if MSE(ds, p) < fit.Loss {
			t.Errorf("perturbation %+v lowered loss below OLS", d)
		}
	}
}

func TestNormalEquationsMatchLeastSquares(t *testing.T) {
	ds := noisyDataset(t, 5)
	a, err := LeastSquares(ds)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NormalEquations(ds)
	if err != nil {
		t.Fatal(err)
	}
	if a.Distance(b) > 1e-8 {
		t.Errorf("least squares %+v and normal equations %+v disagree", a, b)
	}
}

func TestMomentsMatchMSE(t *testing.T) {
	ds := noisyDataset(t, 9)
	mo := MomentsOf(ds)
	for _, p := range []Params{{0, 0}, {2.5, -1}, {-3, 7}} {
		want := MSE(ds, p)
		got := mo.MSE(p.Slope, p.Intercept)
		if math.Abs(got-want) > 1e-8*math.Max(1, want) {
			t.Errorf("moments MSE %f != direct %f at %+v", got, want, p)
		}
	}
}

func TestInitialParams(t *testing.T) {
	ds := noisyDataset(t, 4)
	m, b := 1.5, -2.0

	p := InitialParams(ds, Two, rand.New(rand.NewSource(1)), &m, &b)
	if p.Slope != m || p.Intercept != b {
		t.Errorf("explicit values ignored: %+v", p)
	}

	p = InitialParams(ds, One, rand.New(rand.NewSource(1)), nil, &b)
	if p.Intercept != 0 {
		t.Errorf("arity one must pin intercept, got %f", p.Intercept)
	}

	s := ds.SlopeScale()
	lo, hi := ds.YRange()
	span := ds.YSpan()
	for seed := int64(0); seed < 50; seed++ {
		p := InitialParams(ds, Two, rand.New(rand.NewSource(seed)), nil, nil)
		if p.Slope < -3*s || p.Slope > 3*s {
			t.Errorf("seed %d: slope %f outside ±%f", seed, p.Slope, 3*s)
		}
		if p.Intercept < lo-1.5*span || p.Intercept > hi+1.5*span {
			t.Errorf("seed %d: intercept %f outside range", seed, p.Intercept)
		}
	}

	a := InitialParams(ds, Two, rand.New(rand.NewSource(8)), nil, nil)
	c := InitialParams(ds, Two, rand.New(rand.NewSource(8)), nil, nil)
	if a != c {
		t.Errorf("same seed gave %+v and %+v", a, c)
	}
}
