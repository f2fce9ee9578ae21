// Package mocks provides test doubles for the store interfaces.
// MockTaskStore delegates to optional function fields for targeted error
// injection; InMemoryTaskStore is a working store for end-to-end handler tests.
package mocks
