package dynamo

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors for analysis operations.
var (
	// ErrValidation marks malformed input detected before any compute loop runs.
	ErrValidation = errors.New("dynamo: invalid input")

	// ErrCanceled indicates a long-running operation was interrupted.
	ErrCanceled = errors.New("dynamo: operation canceled by context")

	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates a state whose length differs from the system's.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrDegenerate indicates input that has no meaningful answer, such as a
	// point cloud with a single distinct point.
	ErrDegenerate = errors.New("dynamo: degenerate input")
)

// ValidationError names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
	// Wrapped is an optional more specific sentinel (ErrDimensionMismatch, ErrDegenerate).
	Wrapped error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Wrapped
}

// Invalid builds a ValidationError with a formatted reason.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// CheckDim returns a ValidationError unless len(x) == dim.
func CheckDim(field string, x State, dim int) error {
	if len(x) != dim {
		return &ValidationError{
			Field:   field,
			Reason:  fmt.Sprintf("expected %d components, got %d", dim, len(x)),
			Wrapped: ErrDimensionMismatch,
		}
	}
	if !x.IsValid() {
		return &ValidationError{Field: field, Reason: "non-finite component", Wrapped: ErrInvalidState}
	}
	return nil
}

// CancellationError reports how far an operation got before its context ended.
type CancellationError struct {
	Op        string
	Completed int
	Total     int
	Wrapped   error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("%s canceled after %d/%d: %v", e.Op, e.Completed, e.Total, e.Wrapped)
}

func (e *CancellationError) Is(target error) bool {
	return target == ErrCanceled
}

func (e *CancellationError) Unwrap() error {
	return e.Wrapped
}

// Canceled checks ctx and returns a CancellationError if it is done.
func Canceled(ctx context.Context, op string, completed, total int) error {
	select {
	case <-ctx.Done():
		return &CancellationError{Op: op, Completed: completed, Total: total, Wrapped: ctx.Err()}
	default:
		return nil
	}
}
