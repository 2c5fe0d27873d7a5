package nosqlite

import "github.com/kailas-cloud/nosqlite/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation   = domain.ErrValidation
	ErrNotFound     = domain.ErrNotFound
	ErrStorage      = domain.ErrStorage
	ErrTransport    = domain.ErrTransport
	ErrUnauthorized = domain.ErrUnauthorized
)

// Typed errors re-exported for errors.As.
type (
	// ValidationError names the rejected input.
	ValidationError = domain.ValidationError
	// StorageError carries the statement the engine rejected.
	StorageError = domain.StorageError
	// TransportError carries the statements of a failed remote call.
	TransportError = domain.TransportError
)
