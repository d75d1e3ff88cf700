package threshold

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIndicator is returned when no spec is configured for an
	// (analysis, indicator) key.
	ErrUnknownIndicator = errors.New("unknown indicator")
	// ErrUnknownAnalysis is returned for an analysis type outside the fixed set.
	ErrUnknownAnalysis = errors.New("unknown analysis type")
	// ErrInvalidSpec is returned when a spec breaks a partition invariant.
	ErrInvalidSpec = errors.New("invalid threshold spec")
	// ErrDuplicateSpec is returned when two specs share a key.
	ErrDuplicateSpec = errors.New("duplicate threshold spec")
	// ErrInvalidCategory is returned for a category that is not a band of the threshold spec.
	ErrInvalidCategory = errors.New("invalid category")
)

// UnknownIndicatorError names the key a lookup failed for.
type UnknownIndicatorError struct {
	Key Key
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("%s: no thresholds for %s", ErrUnknownIndicator, e.Key)
}

func (e *UnknownIndicatorError) Unwrap() error { return ErrUnknownIndicator }

func invalid(k Key, format string, args ...any) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidSpec, k, fmt.Sprintf(format, args...))
}
