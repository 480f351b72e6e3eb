// Copyright 2024-2026 Aiku AI

package bridge

import (
	"errors"
	"fmt"
)

// ConnectionError is a user-facing failure of a bridge management
// operation. Its message is shown to whoever issued the command.
type ConnectionError struct {
	Msg string
}

func (e *ConnectionError) Error() string {
	return e.Msg
}

func connectionError(format string, args ...any) error {
	return &ConnectionError{Msg: fmt.Sprintf(format, args...)}
}

// AsConnectionError unwraps err to a *ConnectionError if it is one.
func AsConnectionError(err error) (*ConnectionError, bool) {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// EntityNotFoundError reports that a referenced user, channel or message
// does not exist or is not visible to the bridge.
type EntityNotFoundError struct {
	Kind string
	ID   string
}

func (e *EntityNotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}
