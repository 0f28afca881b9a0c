package types

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable is returned by an irradiation provider that did not
	// respond in time or returned unusable data.
	ErrProviderUnavailable = errors.New("irradiation provider unavailable")

	// ErrNoDataAvailable is returned when every irradiation source failed.
	ErrNoDataAvailable = errors.New("no irradiation data available")

	// ErrInsufficientSources is returned when a comparison has fewer than two
	// successful providers.
	ErrInsufficientSources = errors.New("insufficient irradiation sources for comparison")
)

// ValidationError is returned when an input is missing or malformed. It is
// always raised before any computation happens.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
