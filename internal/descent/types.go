package descent

import (
	"fmt"
	"math"
)

// Arity is the number of free parameters of the linear model.
type Arity int

const (
	// One fits y = m*x; the intercept is pinned at zero.
	One Arity = 1
	// Two fits y = m*x + b.
	Two Arity = 2
)

func (a Arity) Valid() bool { return a == One || a == Two }

func (a Arity) String() string {
	switch a {
	case One:
		return "m"
	case Two:
		return "m,b"
	}
	return fmt.Sprintf("arity(%d)", int(a))
}

type Params struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Predict evaluates the line at x.
func (p Params) Predict(x float64) float64 { return p.Slope*x + p.Intercept }

// Distance is the Euclidean distance between two parameter points.
func (p Params) Distance(o Params) float64 {
	return math.Hypot(p.Slope-o.Slope, p.Intercept-o.Intercept)
}

// Snapshot is the state after one optimization step.
type Snapshot struct {
	Step   int     `json:"step"`
	Params Params  `json:"params"`
	Loss   float64 `json:"loss"`
}

// Fit is a closed-form least-squares solution and its loss.
type Fit struct {
	Params Params  `json:"params"`
	Loss   float64 `json:"loss"`
}

type Config struct {
	Arity        Arity
	LearningRate float64
	Steps        int
}

func DefaultConfig() Config {
	return Config{
		Arity:        Two,
		LearningRate: 0.01,
		Steps:        500,
	}
}

func (c Config) Validate() error {
	if !c.Arity.Valid() {
		return fmt.Errorf("%w: got %d", ErrInvalidArity, int(c.Arity))
	}
	if c.LearningRate <= 0 || math.IsNaN(c.LearningRate) || math.IsInf(c.LearningRate, 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidLearningRate, c.LearningRate)
	}
	if c.Steps < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSteps, c.Steps)
	}
	return nil
}

// Observer is notified of every snapshot as it is produced.
type Observer interface {
	OnStep(s Snapshot)
}
