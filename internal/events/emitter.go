package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/task-manager-api/internal/redact"
)

// InMemoryEventEmitter is a simple implementation of the EventEmitter interface
// that stores registered handlers in memory and dispatches events to them
// synchronously, in registration order.
type InMemoryEventEmitter struct {
	handlers []EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		handlers: make([]EventHandler, 0),
		logger:   logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler adds a new event handler to receive events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new event handler", "handler_count", len(e.handlers))
}

// EmitEvent publishes the given event to all registered handlers.
// If any handler returns an error, the event will still be sent to all other handlers,
// and the first error encountered will be returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *ConnectionEvent) error {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		e.logger.Debug("no handlers registered for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", redact.Error(err),
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// LogHandler writes every connection event to a structured logger.
// Errors are logged at ERROR, disconnects at WARN, the rest at INFO.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler writing to logger.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger.With("component", "connection_events")}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *ConnectionEvent) error {
	attrs := []any{
		"event_id", event.ID,
		"event_type", event.Type,
		"source", event.Source,
	}
	if event.Attempt > 0 {
		attrs = append(attrs, "attempt", event.Attempt)
	}

	switch event.Type {
	case EventError:
		attrs = append(attrs, "error", redact.Error(event.Err))
		h.logger.ErrorContext(ctx, "database connection error", attrs...)
	case EventDisconnected:
		h.logger.WarnContext(ctx, "database disconnected", attrs...)
	default:
		h.logger.InfoContext(ctx, "database connected", attrs...)
	}
	return nil
}
