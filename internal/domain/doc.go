// Package domain contains the core business entities, value objects, and
// domain logic of the application. It represents the heart of the system,
// independent of any specific infrastructure or delivery mechanism.
//
// Validation lives here as plain functions over plain structs so that it can
// be exercised without a running document store.
package domain
