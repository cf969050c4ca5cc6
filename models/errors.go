package models

import (
	"errors"
	"strings"
)

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	// ErrCartConflict is returned when concurrent writers keep winning the
	// cart version race.
	ErrCartConflict = errors.New("cart was modified concurrently")
)

// ValidationError carries every rule violation found for one write. It is
// always safe to show to the user.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, " ")
}

func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// formatError builds "<Field> <description>" with the first letter upper-cased.
func formatError(field, description string) string {
	message := field + " " + description
	if message == "" {
		return message
	}
	return strings.ToUpper(message[:1]) + message[1:]
}
