package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidStatus     = errors.New("order already has this status")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyUpload       = errors.New("no file uploaded")
	ErrNotDatabase       = errors.New("uploaded file is not a SQLite database")
)

// ValidationError reports bad caller input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the entity label, e.g. "Brand not found".
func NotFound(label string) error {
	return fmt.Errorf("%s %w", label, ErrNotFound)
}
