package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrEmpty          = errors.New("dataset: no points")
	ErrLengthMismatch = errors.New("dataset: x and y lengths differ")
)

// Dataset is an ordered set of (x, y) pairs. It is never mutated after
// construction; accessors hand out copies.
type Dataset struct {
	x, y []float64
}

// Spec describes a synthetic dataset drawn from a linear ground truth.
type Spec struct {
	N             int     `json:"n"`
	TrueSlope     float64 `json:"true_slope"`
	TrueIntercept float64 `json:"true_intercept"`
	NoiseStd      float64 `json:"noise_std"`
	XMin          float64 `json:"x_min"`
	XMax          float64 `json:"x_max"`
	// ThroughOrigin drops the intercept from the ground truth.
	ThroughOrigin bool `json:"through_origin"`
}

func New(x, y []float64) (*Dataset, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return nil, ErrEmpty
	}
	d := &Dataset{x: make([]float64, len(x)), y: make([]float64, len(y))}
	copy(d.x, x)
	copy(d.y, y)
	return d, nil
}

// Generate samples x evenly over [XMin, XMax] and adds Gaussian noise
// from rng to the ground-truth line.
func Generate(spec Spec, rng *rand.Rand) (*Dataset, error) {
	if spec.N < 1 {
		return nil, fmt.Errorf("%w: n=%d", ErrEmpty, spec.N)
	}
	x := Linspace(spec.XMin, spec.XMax, spec.N)
	b := spec.TrueIntercept
	if spec.ThroughOrigin {
		b = 0
	}
	y := make([]float64, spec.N)
	for i, xi := range x {
		y[i] = spec.TrueSlope*xi + b + rng.NormFloat64()*spec.NoiseStd
	}
	return &Dataset{x: x, y: y}, nil
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func (d *Dataset) Len() int { return len(d.x) }

func (d *Dataset) X() []float64 { return clone(d.x) }
func (d *Dataset) Y() []float64 { return clone(d.y) }

// At returns the i-th point without copying the columns.
func (d *Dataset) At(i int) (float64, float64) { return d.x[i], d.y[i] }

// Each calls fn for every point in order.
func (d *Dataset) Each(fn func(x, y float64)) {
	for i := range d.x {
		fn(d.x[i], d.y[i])
	}
}

func (d *Dataset) XRange() (float64, float64) { return floats.Min(d.x), floats.Max(d.x) }
func (d *Dataset) YRange() (float64, float64) { return floats.Min(d.y), floats.Max(d.y) }

// SlopeScale is ptp(y)/ptp(x) with both spans floored at 1e-6.
func (d *Dataset) SlopeScale() float64 {
	return d.YSpan() / d.XSpan()
}

func (d *Dataset) XSpan() float64 {
	lo, hi := d.XRange()
	return math.Max(hi-lo, 1e-6)
}

func (d *Dataset) YSpan() float64 {
	lo, hi := d.YRange()
	return math.Max(hi-lo, 1e-6)
}

func clone(s []float64) []float64 {
	c := make([]float64, len(s))
	copy(c, s)
	return c
}
