package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation signals an invalid identifier, empty key set or missing required keys.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a lookup that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrStorage signals a statement rejected by the storage engine.
	ErrStorage = errors.New("storage operation failed")
	// ErrTransport signals a failed remote call.
	ErrTransport = errors.New("transport failure")
	// ErrUnauthorized signals a failed credential check.
	ErrUnauthorized = errors.New("authentication failed")
	// ErrSchemaRace marks a column addition lost to a concurrent writer.
	// It is swallowed by the schema evolver and never returned to callers.
	ErrSchemaRace = errors.New("schema race")
)

// ValidationError describes which input failed validation and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a validation error for the given field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError carries the statement the engine rejected.
type StorageError struct {
	Statement string
	Err       error
}

func (e *StorageError) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s [statement: %s]", ErrStorage.Error(), msg, e.Statement)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is matches ErrStorage in addition to the wrapped engine error.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// TransportError preserves the command text of a failed remote call.
type TransportError struct {
	Commands []string
	Err      error
}

func (e *TransportError) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s [commands: %s]", ErrTransport.Error(), msg, strings.Join(e.Commands, "; "))
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport in addition to the wrapped cause.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }
