package common

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the engine packages. Every failure propagates
// synchronously to the immediate caller; nothing in this core retries.
var (
	// ErrMissingConfiguration signals that a required path or setting is
	// absent (e.g. a dictionary check requested without a dictionary path).
	ErrMissingConfiguration = errors.New("required configuration is missing")

	// ErrUnsupportedOperation signals an unregistered operation identifier.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrAmbiguousMatch signals that a key expected to identify a unique
	// row matched more than one.
	ErrAmbiguousMatch = errors.New("match key did not return a unique record")
)

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", context, err)
}
