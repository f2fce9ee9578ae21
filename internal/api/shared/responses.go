package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/redact"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	Error      string      `json:"error,omitempty"`
	TraceID    string      `json:"trace_id,omitempty"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Current    int   `json:"current"`
	Total      int64 `json:"total"`
	Count      int   `json:"count"`
	TotalItems int64 `json:"totalItems"`
}

// ResponseOption defines a function to customize response behavior.
type ResponseOption func(*responseOptions)

// responseOptions holds configurable options for error responses.
type responseOptions struct {
	elevateLogLevel bool
	fieldErrors     []string
	detail          string
}

// WithElevatedLogLevel returns a ResponseOption that raises 4xx errors to WARN level
// instead of the default DEBUG level.
func WithElevatedLogLevel() ResponseOption {
	return func(opts *responseOptions) {
		opts.elevateLogLevel = true
	}
}

// WithFieldErrors attaches field-level validation messages to the response.
func WithFieldErrors(messages []string) ResponseOption {
	return func(opts *responseOptions) {
		opts.fieldErrors = messages
	}
}

// WithErrorDetail exposes the raw error text in the "error" field.
// Only development deployments should use it.
func WithErrorDetail(detail string) ResponseOption {
	return func(opts *responseOptions) {
		opts.detail = detail
	}
}

// RespondWithJSON writes a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Error("failed to encode JSON response", "error", err)
	}
}

// RespondWithData writes a successful envelope carrying data.
func RespondWithData(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	RespondWithJSON(w, r, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondWithPage writes a successful list envelope.
func RespondWithPage(w http.ResponseWriter, r *http.Request, data interface{}, page Pagination) {
	RespondWithJSON(w, r, http.StatusOK, Envelope{
		Success:    true,
		Data:       data,
		Pagination: &page,
	})
}

// RespondWithError writes a JSON error response with the given status code and message.
// It also sets the TraceID from the request context if available.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	traceID := GetTraceID(r.Context())

	logger.FromContextOrDefault(r.Context(), slog.Default()).Debug("sending error response",
		"status_code", status,
		"message", message,
		"trace_id", traceID,
		"path", r.URL.Path,
		"method", r.Method)

	RespondWithJSON(w, r, status, Envelope{
		Success: false,
		Message: message,
		TraceID: traceID,
	})
}

// RespondWithErrorAndLog writes a JSON error response and also logs the detailed error.
// The client only sees userMessage, plus whatever the options add.
//
// Log level strategy:
// - 5xx errors: Always logged at ERROR level
// - 4xx errors: By default logged at DEBUG level
// - WithElevatedLogLevel raises 4xx errors to WARN
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	traceID := GetTraceID(r.Context())

	responseOpts := responseOptions{}
	for _, opt := range opts {
		opt(&responseOpts)
	}

	logAttrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		logAttrs = append(logAttrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	logLevel := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		logLevel = slog.LevelError
	} else if responseOpts.elevateLogLevel && status >= http.StatusBadRequest {
		logLevel = slog.LevelWarn
	}
	logger.FromContextOrDefault(r.Context(), slog.Default()).
		LogAttrs(r.Context(), logLevel, "API error response", logAttrs...)

	RespondWithJSON(w, r, status, Envelope{
		Success: false,
		Message: userMessage,
		Errors:  responseOpts.fieldErrors,
		Error:   responseOpts.detail,
		TraceID: traceID,
	})
}
