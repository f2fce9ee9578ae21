package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Key type for context values
type ContextKey string

// TraceIDKey is the key for the trace ID in the request context
const TraceIDKey ContextKey = "traceID"

// SetTraceID adds a trace ID to the context. An empty id is replaced by a
// freshly generated one.
// This is useful for correlating logs and error responses.
func SetTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, id)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// NewTraceID returns a random 32-character hex id.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
