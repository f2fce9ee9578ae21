package mocks

import (
	"context"
	"time"

	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing.
// Unset functions fall back to the InMemoryTaskStore in Fallback when set,
// and otherwise return DefaultError.
type MockTaskStore struct {
	CreateFn       func(ctx context.Context, task *domain.Task) error
	GetByIDFn      func(ctx context.Context, id string) (*domain.Task, error)
	ListFn         func(ctx context.Context, filter store.TaskFilter, page store.Page) ([]*domain.Task, int64, error)
	ReplaceFn      func(ctx context.Context, task *domain.Task) error
	UpdateStatusFn func(ctx context.Context, id string, status domain.TaskStatus, updatedAt time.Time) (*domain.Task, error)
	DeleteFn       func(ctx context.Context, id string) (*domain.Task, error)
	StatsFn        func(ctx context.Context) (domain.TaskStats, error)

	Fallback     *InMemoryTaskStore
	DefaultError error
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// Create implements store.TaskStore.
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if m.Fallback != nil {
		return m.Fallback.Create(ctx, task)
	}
	return m.DefaultError
}

// GetByID implements store.TaskStore.
func (m *MockTaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if m.Fallback != nil {
		return m.Fallback.GetByID(ctx, id)
	}
	return nil, m.DefaultError
}

// List implements store.TaskStore.
func (m *MockTaskStore) List(
	ctx context.Context,
	filter store.TaskFilter,
	page store.Page,
) ([]*domain.Task, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter, page)
	}
	if m.Fallback != nil {
		return m.Fallback.List(ctx, filter, page)
	}
	return nil, 0, m.DefaultError
}

// Replace implements store.TaskStore.
func (m *MockTaskStore) Replace(ctx context.Context, task *domain.Task) error {
	if m.ReplaceFn != nil {
		return m.ReplaceFn(ctx, task)
	}
	if m.Fallback != nil {
		return m.Fallback.Replace(ctx, task)
	}
	return m.DefaultError
}

// UpdateStatus implements store.TaskStore.
func (m *MockTaskStore) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.TaskStatus,
	updatedAt time.Time,
) (*domain.Task, error) {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status, updatedAt)
	}
	if m.Fallback != nil {
		return m.Fallback.UpdateStatus(ctx, id, status, updatedAt)
	}
	return nil, m.DefaultError
}

// Delete implements store.TaskStore.
func (m *MockTaskStore) Delete(ctx context.Context, id string) (*domain.Task, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	if m.Fallback != nil {
		return m.Fallback.Delete(ctx, id)
	}
	return nil, m.DefaultError
}

// Stats implements store.TaskStore.
func (m *MockTaskStore) Stats(ctx context.Context) (domain.TaskStats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	if m.Fallback != nil {
		return m.Fallback.Stats(ctx)
	}
	return domain.TaskStats{}, m.DefaultError
}
