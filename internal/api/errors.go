package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/task-manager-api/internal/api/shared"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// Client-facing messages.
const (
	msgInvalidInput     = "Invalid input data"
	msgTaskNotFound     = "Task not found"
	msgRouteNotFound    = "Endpoint not found"
	msgBodyTooLarge     = "Request body too large"
	msgInternalError    = "Internal server error"
	msgStoreUnavailable = "Database unavailable"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, shared.ErrInvalidBody),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, shared.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Unavailable stores, duplicates and anything unknown are server faults.
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return msgInternalError
	}

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, shared.ErrInvalidBody),
		errors.Is(err, store.ErrInvalidEntity):
		return msgInvalidInput

	case errors.Is(err, shared.ErrBodyTooLarge):
		return msgBodyTooLarge

	case errors.Is(err, store.ErrTaskNotFound), errors.Is(err, store.ErrNotFound):
		return msgTaskNotFound

	case errors.Is(err, store.ErrStoreUnavailable):
		return msgStoreUnavailable

	default:
		return msgInternalError
	}
}

// errorResponder writes error envelopes. When exposeDetail is set, 5xx
// responses include the raw error text.
type errorResponder struct {
	exposeDetail bool
}

// HandleAPIError maps err to a status code and writes the error envelope.
// fallback replaces the generic message for 5xx responses when non-empty.
func (e errorResponder) HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)

	var opts []shared.ResponseOption
	if status == http.StatusBadRequest {
		opts = append(opts, shared.WithFieldErrors(validationMessages(err)))
	}
	if status >= http.StatusInternalServerError {
		if fallback != "" && !errors.Is(err, store.ErrStoreUnavailable) {
			message = fallback
		}
		if e.exposeDetail {
			opts = append(opts, shared.WithErrorDetail(err.Error()))
		}
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// validationMessages returns the field messages of a validation error, or a
// single generic message for malformed bodies.
func validationMessages(err error) []string {
	if msgs := domain.ValidationMessages(err); len(msgs) > 0 {
		return msgs
	}
	if errors.Is(err, shared.ErrInvalidBody) {
		return []string{"request body must be a valid JSON object"}
	}
	return nil
}

// RouteNotFound answers every unmatched API route, regardless of method.
func RouteNotFound(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithError(w, r, http.StatusNotFound, msgRouteNotFound)
}
