// Package mongodb provides MongoDB-specific implementations for the data
// storage interfaces defined in the internal/store package.
// It owns the shared driver client through Manager, which connects with
// capped exponential backoff and reports connection lifecycle events, and
// maps between domain entities and BSON documents in TaskStore.
package mongodb
