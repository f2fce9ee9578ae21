package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/redact"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// Pagination defaults and bounds for ListTasks.
const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 1000
)

// ListParams selects a filtered page of tasks.
type ListParams struct {
	Filter store.TaskFilter
	Page   int
	Limit  int
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks      []*domain.Task
	Page       int
	Limit      int
	TotalItems int64
}

// TotalPages returns ceil(TotalItems / Limit).
func (p *TaskPage) TotalPages() int64 {
	if p.Limit <= 0 {
		return 0
	}
	limit := int64(p.Limit)
	return (p.TotalItems + limit - 1) / limit
}

// TaskService provides task-related operations
type TaskService interface {
	// CreateTask applies defaults to the patch, validates and persists the task.
	CreateTask(ctx context.Context, patch domain.TaskPatch) (*domain.Task, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, id string) (*domain.Task, error)

	// ListTasks returns a filtered page of tasks, newest first.
	ListTasks(ctx context.Context, params ListParams) (*TaskPage, error)

	// UpdateTask applies the supplied fields, re-validates the merged task and
	// refreshes UpdatedAt.
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)

	// UpdateTaskStatus validates the status before looking the task up.
	UpdateTaskStatus(ctx context.Context, id string, status string) (*domain.Task, error)

	// DeleteTask removes a task and returns the removed record.
	DeleteTask(ctx context.Context, id string) (*domain.Task, error)

	// GetStats computes collection-wide counts.
	GetStats(ctx context.Context) (domain.TaskStats, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore store.TaskStore
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures the task service.
type Option func(*taskServiceImpl)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *taskServiceImpl) {
		s.now = now
	}
}

// NewTaskService creates a new TaskService
// It returns an error if any of the required dependencies are nil.
func NewTaskService(taskStore store.TaskStore, logger *slog.Logger, opts ...Option) (TaskService, error) {
	if taskStore == nil {
		return nil, fmt.Errorf("taskStore cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		taskStore: taskStore,
		now:       time.Now,
		logger:    logger.With("component", "task_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *taskServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

// wrapStoreError keeps not-found and validation errors recognizable and wraps
// everything else with operation context.
func (s *taskServiceImpl) wrapStoreError(ctx context.Context, operation string, err error) error {
	if store.IsNotFoundError(err) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	s.log(ctx).Error("task store operation failed",
		"operation", operation,
		"error", redact.Error(err))
	return NewTaskServiceError(operation, "store operation failed", err)
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(ctx context.Context, patch domain.TaskPatch) (*domain.Task, error) {
	now := s.now()
	task := domain.NewTask(patch, now)

	if err := domain.ValidateWrite(task, patch, now); err != nil {
		s.log(ctx).Debug("task failed validation", "error", err)
		return nil, err
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		return nil, s.wrapStoreError(ctx, "create", err)
	}

	s.log(ctx).Info("task created", "task_id", task.ID)
	return task, nil
}

// GetTask implements TaskService.GetTask
func (s *taskServiceImpl) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrapStoreError(ctx, "get", err)
	}
	return task, nil
}

// ListTasks implements TaskService.ListTasks
func (s *taskServiceImpl) ListTasks(ctx context.Context, params ListParams) (*TaskPage, error) {
	if params.Page == 0 {
		params.Page = DefaultPage
	}
	if params.Limit == 0 {
		params.Limit = DefaultLimit
	}

	vErr := &domain.ValidationError{}
	switch {
	case params.Limit < 1:
		vErr.Add("limit must be a positive integer")
	case params.Limit > MaxLimit:
		vErr.Add(fmt.Sprintf("limit cannot exceed %d", MaxLimit))
	}
	switch {
	case params.Page < 1:
		vErr.Add("page must be a positive integer")
	case !vErr.HasErrors() && int64(params.Page-1) > math.MaxInt64/int64(params.Limit):
		vErr.Add("page is too large")
	}
	if vErr.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPage, vErr)
	}

	tasks, total, err := s.taskStore.List(ctx, params.Filter, store.Page{Number: params.Page, Limit: params.Limit})
	if err != nil {
		return nil, s.wrapStoreError(ctx, "list", err)
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	return &TaskPage{
		Tasks:      tasks,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalItems: total,
	}, nil
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskServiceImpl) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrapStoreError(ctx, "update", err)
	}

	now := s.now()
	task.Apply(patch)
	if err := domain.ValidateWrite(task, patch, now); err != nil {
		return nil, err
	}
	task.Touch(now)

	// Concurrent updates of the same task are last-write-wins.
	if err := s.taskStore.Replace(ctx, task); err != nil {
		return nil, s.wrapStoreError(ctx, "update", err)
	}

	s.log(ctx).Info("task updated", "task_id", task.ID)
	return task, nil
}

// UpdateTaskStatus implements TaskService.UpdateTaskStatus
func (s *taskServiceImpl) UpdateTaskStatus(ctx context.Context, id string, status string) (*domain.Task, error) {
	st, err := domain.ValidateStatus(status)
	if err != nil {
		return nil, err
	}

	task, err := s.taskStore.UpdateStatus(ctx, id, st, s.now())
	if err != nil {
		return nil, s.wrapStoreError(ctx, "update_status", err)
	}

	s.log(ctx).Info("task status updated", "task_id", task.ID, "status", task.Status)
	return task, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.taskStore.Delete(ctx, id)
	if err != nil {
		return nil, s.wrapStoreError(ctx, "delete", err)
	}

	s.log(ctx).Info("task deleted", "task_id", task.ID)
	return task, nil
}

// GetStats implements TaskService.GetStats
func (s *taskServiceImpl) GetStats(ctx context.Context) (domain.TaskStats, error) {
	stats, err := s.taskStore.Stats(ctx)
	if err != nil {
		return domain.TaskStats{}, s.wrapStoreError(ctx, "stats", err)
	}
	return stats, nil
}
