// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// Services apply defaults and run the pure domain validation before any
// write reaches the store, so the store never sees an invalid task.
// Dependencies are received through constructor injection.
package service
