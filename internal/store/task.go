package store

import (
	"context"
	"time"

	"github.com/phrazzld/task-manager-api/internal/domain"
)

// TaskFilter restricts a task listing. Empty fields do not filter; set
// fields are combined with AND and matched exactly.
type TaskFilter struct {
	Status   string
	Priority string
	Category string
}

// Page selects a 1-indexed page of Limit items.
type Page struct {
	Number int
	Limit  int
}

// Skip returns how many items precede the page.
func (p Page) Skip() int64 {
	if p.Number < 1 {
		return 0
	}
	return int64(p.Number-1) * int64(p.Limit)
}

// TaskStore defines the interface for task data persistence.
// Implementations do not validate tasks; callers are expected to run
// domain.ValidateTask before writing.
type TaskStore interface {
	// Create saves a new task and assigns its ID.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist or the ID is malformed.
	GetByID(ctx context.Context, id string) (*domain.Task, error)

	// List returns the tasks matching the filter for the given page, newest
	// first by CreatedAt, together with the total number of matching tasks.
	List(ctx context.Context, filter TaskFilter, page Page) ([]*domain.Task, int64, error)

	// Replace overwrites every mutable field of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Replace(ctx context.Context, task *domain.Task) error

	// UpdateStatus sets the status and UpdatedAt of one task and returns the
	// updated task. Returns ErrTaskNotFound if the task does not exist.
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, updatedAt time.Time) (*domain.Task, error)

	// Delete removes a task and returns it as it was before deletion.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id string) (*domain.Task, error)

	// Stats computes aggregate counts over the whole collection.
	Stats(ctx context.Context) (domain.TaskStats, error)
}
