package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrSimulationStarted is returned when cars are added after the first round
	ErrSimulationStarted = errors.New("simulation already started")
)

// ValidationError reports malformed input found while building a field, car or scenario.
type ValidationError struct {
	Field  string // offending input, e.g. "direction" or "cars[1].x"
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// withPrefix namespaces the offending field, e.g. "x" becomes "cars[2].x".
func withPrefix(prefix string, err error) error {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return &ValidationError{Field: prefix + "." + verr.Field, Value: verr.Value, Reason: verr.Reason}
}
