package thermalcore

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a missing or out-of-range transformer specification.
	ErrConfiguration = errors.New("thermalcore: invalid configuration")

	// ErrInvalidInput marks a malformed input series.
	ErrInvalidInput = errors.New("thermalcore: invalid input series")

	// ErrInvalidTimestep marks a zero or negative interval between two samples.
	ErrInvalidTimestep = errors.New("thermalcore: invalid timestep")

	// ErrCalibrationNonConvergence is returned when the hot-spot factor search
	// runs out of iterations without meeting its tolerance or a bound.
	ErrCalibrationNonConvergence = errors.New("thermalcore: calibration did not converge")
)

// ConfigurationError names the specification field that failed validation.
type ConfigurationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s = %g: %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configErr(field string, value float64, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// InvalidInputError points at the series and sample that made the profile unusable.
// Index is -1 when the problem concerns the series as a whole.
type InvalidInputError struct {
	Field  string
	Index  int
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: %s: %s", ErrInvalidInput, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v: %s[%d]: %s", ErrInvalidInput, e.Field, e.Index, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

func inputErr(field string, index int, reason string) error {
	return &InvalidInputError{Field: field, Index: index, Reason: reason}
}

// InvalidTimestepError reports the step whose interval was not positive.
// A negative interval means the timestamps are out of order, so it also
// matches ErrInvalidInput.
type InvalidTimestepError struct {
	Step int
	Dt   float64 // minutes
}

func (e *InvalidTimestepError) Error() string {
	return fmt.Sprintf("%v: step %d has dt = %g min", ErrInvalidTimestep, e.Step, e.Dt)
}

func (e *InvalidTimestepError) Unwrap() error {
	return ErrInvalidTimestep
}

func (e *InvalidTimestepError) Is(target error) bool {
	return target == ErrInvalidInput && e.Dt < 0
}

// CalibrationNonConvergenceError carries the last trial of a failed search.
type CalibrationNonConvergenceError struct {
	Method      CalibrationMethod
	Iterations  int
	LastFactor  float64
	LastHotSpot float64
}

func (e *CalibrationNonConvergenceError) Error() string {
	return fmt.Sprintf("%v: method %s stopped after %d iterations at H = %.4f (hot-spot %.3f)",
		ErrCalibrationNonConvergence, e.Method, e.Iterations, e.LastFactor, e.LastHotSpot)
}

func (e *CalibrationNonConvergenceError) Unwrap() error {
	return ErrCalibrationNonConvergence
}
