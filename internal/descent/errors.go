package descent

import "errors"

// Configuration errors. All of them are raised before any step runs.
var (
	// ErrInvalidArity indicates a model arity other than 1 or 2.
	ErrInvalidArity = errors.New("descent: model arity must be 1 or 2")

	// ErrInvalidLearningRate indicates a non-positive or non-finite learning rate.
	ErrInvalidLearningRate = errors.New("descent: learning rate must be positive")

	// ErrInvalidSteps indicates a step count below one.
	ErrInvalidSteps = errors.New("descent: step count must be at least 1")

	// ErrEmptyDataset indicates a dataset without points.
	ErrEmptyDataset = errors.New("descent: dataset is empty")

	// ErrCanceled indicates generation was interrupted by its context.
	ErrCanceled = errors.New("descent: generation canceled")
)
