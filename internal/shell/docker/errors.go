package docker

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrContainerNotFound is returned when a container id does not resolve.
	ErrContainerNotFound = errors.New("container not found")

	// ErrConnectionFailed is returned when the daemon is unreachable.
	ErrConnectionFailed = errors.New("docker connection failed")
)

// DockerError wraps errors with additional context.
type DockerError struct {
	Op      string // Operation that failed
	ID      string // Container ID if applicable
	Message string
	Err     error
}

func (e *DockerError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DockerError) Unwrap() error {
	return e.Err
}

// NewDockerError creates a new DockerError.
func NewDockerError(op, id, message string, err error) *DockerError {
	return &DockerError{
		Op:      op,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
