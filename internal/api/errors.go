package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/scry-ingest/internal/batch"
)

// Error messages returned to clients
const (
	msgInvalidTransition = "Operation not allowed in the current batch state"
	msgCancelled         = "Batch has been cancelled"
	msgInternal          = "An unexpected error occurred"
)

// MapErrorToStatusCode maps batch errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, batch.ErrInvalidTransition),
		errors.Is(err, batch.ErrAlreadyRunning),
		errors.Is(err, batch.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, batch.ErrInvalidConfig),
		errors.Is(err, batch.ErrInvalidState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, batch.ErrCancelled):
		return msgCancelled
	case errors.Is(err, batch.ErrInvalidTransition),
		errors.Is(err, batch.ErrAlreadyRunning):
		return msgInvalidTransition
	default:
		return msgInternal
	}
}
