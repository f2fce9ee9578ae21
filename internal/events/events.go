package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a connection lifecycle transition.
type EventType string

// Connection lifecycle event types
const (
	EventConnected    EventType = "connected"
	EventError        EventType = "error"
	EventDisconnected EventType = "disconnected"
)

// ConnectionEvent describes a change in the state of the store connection.
type ConnectionEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is the lifecycle transition that happened
	Type EventType `json:"type"`

	// Source names what observed the transition, e.g. "connect" or "monitor"
	Source string `json:"source"`

	// Attempt is the 1-based connection attempt, when the event comes from Connect
	Attempt int `json:"attempt,omitempty"`

	// Err holds the failure for EventError events
	Err error `json:"-"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewConnectionEvent creates a new ConnectionEvent of the given type.
func NewConnectionEvent(eventType EventType, source string, err error) *ConnectionEvent {
	return &ConnectionEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Source:    source,
		Err:       err,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *ConnectionEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *ConnectionEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ConnectionEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the connection manager to publish events without direct
// knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *ConnectionEvent) error
}
