// Package spec contains pure functions for transforming docker-compose
// documents so they stay usable when read from inside a container.
// This is part of the Functional Core - no file I/O happens here.
package spec

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrEmptyInput is returned when the compose document is empty.
	ErrEmptyInput = errors.New("compose spec is empty")

	// ErrInvalidYAML is returned when the document is not valid YAML.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrNoServices is returned when the document defines no services.
	ErrNoServices = errors.New("compose spec must define at least one service")

	// ErrInvalidSpec is returned when compose-go rejects the document shape.
	ErrInvalidSpec = errors.New("compose spec failed validation")
)

// SpecError wraps errors with context about which part of the document failed.
type SpecError struct {
	Field   string // e.g., "services.web.volumes[0]"
	Message string
	Err     error
}

func (e *SpecError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *SpecError) Unwrap() error {
	return e.Err
}

// NewSpecError creates a new SpecError.
func NewSpecError(field, message string, err error) *SpecError {
	return &SpecError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
