package documents

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrForbidden indicates the caller does not own the document.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidInput is wrapped by every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError carries a message safe to show the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
