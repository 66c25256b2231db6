package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for records that do not exist or are not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a reading already exists for the sensor at that timestamp.
	ErrConflict           = errors.New("reading already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError describes malformed or missing client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
