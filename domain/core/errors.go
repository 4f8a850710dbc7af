package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound          = errors.New("resource not found")
	ErrUnitNotFound      = fmt.Errorf("%w: unit", ErrNotFound)
	ErrConditionNotFound = fmt.Errorf("%w: stimulus condition", ErrNotFound)
	ErrRunNotFound       = fmt.Errorf("%w: analysis run", ErrNotFound)

	// Base-data errors: fatal for the affected unit's row
	ErrMissingData = errors.New("missing conditionwise statistic")

	// Recoverable computation errors: recorded as undefined in the output
	ErrUndefinedIndex     = errors.New("index undefined for degenerate input")
	ErrInsufficientTrials = errors.New("trial count does not exceed bias correction term")

	// Tolerated fit errors: undefined fit outputs, analysis continues
	ErrFitDidNotConverge = errors.New("curve fit did not converge")

	// Input validation errors
	ErrEmptyAxis     = errors.New("tuning axis has no values")
	ErrEmptyUnitSet  = errors.New("no unit ids supplied")
	ErrTableMismatch = errors.New("statistics table references unknown condition")
)

// NewMissingDataError reports a unit with no statistic for any condition at an axis value.
func NewMissingDataError(unitID int64, axis string, value float64) error {
	return fmt.Errorf("%w: unit %d has no statistic for %s=%g", ErrMissingData, unitID, axis, value)
}

// NewUndefinedIndexError reports a degenerate input to a selectivity or discrimination index.
func NewUndefinedIndexError(unitID int64, index string, reason string) error {
	return fmt.Errorf("%w: %s for unit %d: %s", ErrUndefinedIndex, index, unitID, reason)
}

// NewTableMismatchError reports a statistics row keyed by a condition the condition table lacks.
func NewTableMismatchError(conditionID int64) error {
	return fmt.Errorf("%w: condition %d", ErrTableMismatch, conditionID)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsMissingDataError(err error) bool {
	return errors.Is(err, ErrMissingData)
}

func IsUndefinedIndexError(err error) bool {
	return errors.Is(err, ErrUndefinedIndex) || errors.Is(err, ErrInsufficientTrials)
}

func IsFitError(err error) bool {
	return errors.Is(err, ErrFitDidNotConverge)
}
