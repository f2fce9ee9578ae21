// Package middleware provides HTTP middleware shared by every route:
// trace IDs with request-scoped logging, and panic recovery into the
// standard JSON error envelope.
package middleware
