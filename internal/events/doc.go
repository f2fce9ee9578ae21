// Package events provides the connection lifecycle events published by the
// document store connection manager, and a small in-memory emitter that
// fans them out to registered handlers.
//
// The primary components are:
// - ConnectionEvent: a "connected", "error" or "disconnected" signal
// - EventHandler: Interface for components that react to events
// - EventEmitter: Interface for components that publish events
package events
