package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/transport/wire"
	"github.com/kailas-cloud/nosqlite/internal/usecase/execute"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// storageErrorHandler reports the rejected statement along with the engine message.
func storageErrorHandler(w http.ResponseWriter, err error) bool {
	var se *domain.StorageError
	if !errors.As(err, &se) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, wire.ErrorResponse{
		Code:      wire.CodeStorageError,
		Message:   unwrapStorage(se),
		Statement: se.Statement,
	})
	return true
}

func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, wire.ErrorResponse{
			Code:    wire.CodeValidationFailed,
			Message: ve.Reason,
			Field:   ve.Field,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, wire.CodeValidationFailed, domain.ErrValidation.Error())
	return true
}

func poolClosedHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, execute.ErrPoolClosed) {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, wire.CodeUnavailable, "server is shutting down")
	return true
}

func timeoutHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return false
	}
	writeError(w, http.StatusGatewayTimeout, wire.CodeTimeout, err.Error())
	return true
}
