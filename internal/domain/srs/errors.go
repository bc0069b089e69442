package srs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scheduling engine.
// Use errors.Is to check the category and errors.As to get the details.
var (
	// ErrConfig is returned when a SchedulerConfig or DailyLimits value is invalid.
	ErrConfig = errors.New("invalid scheduler configuration")

	// ErrInvalidRating is returned when a rating is outside Again..Easy.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidState is returned when a CardMemoryState is internally inconsistent.
	ErrInvalidState = errors.New("invalid card memory state")
)

// ConfigError describes a configuration field that failed validation.
// The engine never clamps or defaults an invalid configuration.
type ConfigError struct {
	// Field is the offending field name (e.g., "MaximumInterval", "Weights[3]")
	Field string
	// Reason is a human-readable description of the constraint
	Reason string
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfig.Error(), e.Field, e.Reason)
}

// Unwrap returns ErrConfig to support errors.Is.
func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// InvalidRatingError reports a rating value outside {1,2,3,4}.
type InvalidRatingError struct {
	Rating Rating
}

// Error implements the error interface for InvalidRatingError.
func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("%s: %d", ErrInvalidRating.Error(), int(e.Rating))
}

// Unwrap returns ErrInvalidRating to support errors.Is.
func (e *InvalidRatingError) Unwrap() error {
	return ErrInvalidRating
}

// InvalidStateError reports a memory state whose fields contradict each other,
// for example a New card with reps > 0.
type InvalidStateError struct {
	Reason string
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidState.Error(), e.Reason)
}

// Unwrap returns ErrInvalidState to support errors.Is.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

func configError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

func invalidState(format string, args ...any) error {
	return &InvalidStateError{Reason: fmt.Sprintf(format, args...)}
}
