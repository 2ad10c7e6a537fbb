package dynamo

import "errors"

// Domain errors for dynamics operations.
var (
	// ErrNonPositiveMass indicates an acceleration was requested for a body
	// with zero or negative mass.
	ErrNonPositiveMass = errors.New("dynamo: mass must be positive")

	// ErrInvalidState indicates a step would have produced NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnknownForce indicates a force kind outside the closed variant set.
	ErrUnknownForce = errors.New("dynamo: unknown force kind")
)

// StepError wraps an integration failure with the offending inputs.
type StepError struct {
	Mass    float64
	Dt      float64
	Wrapped error
}

func (e *StepError) Error() string {
	return e.Wrapped.Error()
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
