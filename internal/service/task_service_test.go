package service_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/mocks"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/service"
	"github.com/phrazzld/task-manager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a fixed, manually advanced time.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T, taskStore store.TaskStore) (service.TaskService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	log, _ := logger.GetTestLogger(t)
	svc, err := service.NewTaskService(taskStore, log, service.WithClock(clock.Now))
	require.NoError(t, err)
	return svc, clock
}

func TestNewTaskService(t *testing.T) {
	_, err := service.NewTaskService(nil, nil)
	assert.Error(t, err)

	svc, err := service.NewTaskService(mocks.NewInMemoryTaskStore(), nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestCreateTask(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		svc, clock := newService(t, mocks.NewInMemoryTaskStore())

		task, err := svc.CreateTask(context.Background(), domain.TaskPatch{Title: ptr("  Write report  ")})

		require.NoError(t, err)
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, "Write report", task.Title)
		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
		assert.Equal(t, domain.DefaultCategory, task.Category)
		assert.Equal(t, []string{}, task.Tags)
		assert.Nil(t, task.DueDate)
		assert.True(t, task.CreatedAt.Equal(clock.now))
		assert.Equal(t, task.CreatedAt, task.UpdatedAt)
	})

	t.Run("reports every violated field", func(t *testing.T) {
		memStore := mocks.NewInMemoryTaskStore()
		svc, clock := newService(t, memStore)
		yesterday := clock.now.Add(-24 * time.Hour)

		_, err := svc.CreateTask(context.Background(), domain.TaskPatch{
			Title:   ptr(strings.Repeat("x", 101)),
			DueDate: &yesterday,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		msgs := domain.ValidationMessages(err)
		assert.Len(t, msgs, 2)
		assert.Contains(t, msgs, "title cannot exceed 100 characters")
		assert.Contains(t, msgs, domain.DueDateInPastMessage)
		assert.Zero(t, memStore.Len(), "nothing is persisted on validation failure")
	})

	t.Run("missing title", func(t *testing.T) {
		svc, _ := newService(t, mocks.NewInMemoryTaskStore())

		_, err := svc.CreateTask(context.Background(), domain.TaskPatch{Title: ptr("   ")})

		assert.Equal(t, []string{"title is required"}, domain.ValidationMessages(err))
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		boom := errors.New("write failed")
		svc, _ := newService(t, &mocks.MockTaskStore{DefaultError: boom})

		_, err := svc.CreateTask(context.Background(), domain.TaskPatch{Title: ptr("t")})

		var svcErr *service.TaskServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "create", svcErr.Operation)
		assert.ErrorIs(t, err, boom)
	})
}

func TestGetTask(t *testing.T) {
	svc, _ := newService(t, mocks.NewInMemoryTaskStore())
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, domain.TaskPatch{Title: ptr("round trip"), Tags: &[]string{"x", "x"}})
	require.NoError(t, err)

	first, err := svc.GetTask(ctx, created.ID)
	require.NoError(t, err)
	second, err := svc.GetTask(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created, first)
	assert.Equal(t, first, second, "repeated reads are identical")

	_, err = svc.GetTask(ctx, "000000000000000000000000")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	_, err = svc.GetTask(ctx, "malformed")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestListTasks(t *testing.T) {
	svc, clock := newService(t, mocks.NewInMemoryTaskStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		priority := domain.TaskPriorityLow
		if i%2 == 0 {
			priority = domain.TaskPriorityHigh
		}
		_, err := svc.CreateTask(ctx, domain.TaskPatch{Title: ptr("task"), Priority: &priority})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	t.Run("defaults", func(t *testing.T) {
		page, err := svc.ListTasks(ctx, service.ListParams{})
		require.NoError(t, err)
		assert.Equal(t, service.DefaultPage, page.Page)
		assert.Equal(t, service.DefaultLimit, page.Limit)
		assert.Len(t, page.Tasks, 5)
		assert.Equal(t, int64(1), page.TotalPages())
		for i := 1; i < len(page.Tasks); i++ {
			assert.False(t, page.Tasks[i].CreatedAt.After(page.Tasks[i-1].CreatedAt), "newest first")
		}
	})

	t.Run("remainder page", func(t *testing.T) {
		page, err := svc.ListTasks(ctx, service.ListParams{Page: 3, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page.Tasks, 1)
		assert.Equal(t, int64(5), page.TotalItems)
		assert.Equal(t, int64(3), page.TotalPages())
	})

	t.Run("filter", func(t *testing.T) {
		page, err := svc.ListTasks(ctx, service.ListParams{Filter: store.TaskFilter{Priority: "high"}})
		require.NoError(t, err)
		assert.Len(t, page.Tasks, 3)
		assert.Equal(t, int64(3), page.TotalItems)
	})

	t.Run("no matches", func(t *testing.T) {
		page, err := svc.ListTasks(ctx, service.ListParams{Filter: store.TaskFilter{Category: "none"}})
		require.NoError(t, err)
		assert.NotNil(t, page.Tasks)
		assert.Empty(t, page.Tasks)
		assert.Zero(t, page.TotalPages())
	})

	t.Run("invalid page", func(t *testing.T) {
		_, err := svc.ListTasks(ctx, service.ListParams{Page: -1, Limit: -5})
		require.Error(t, err)
		assert.ErrorIs(t, err, service.ErrInvalidPage)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Len(t, domain.ValidationMessages(err), 2)
	})

	t.Run("page size above maximum", func(t *testing.T) {
		_, err := svc.ListTasks(ctx, service.ListParams{Limit: service.MaxLimit + 1})
		assert.ErrorIs(t, err, service.ErrInvalidPage)
		assert.Equal(t, []string{"limit cannot exceed 1000"}, domain.ValidationMessages(err))

		page, err := svc.ListTasks(ctx, service.ListParams{Limit: service.MaxLimit})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.TotalPages())
	})

	t.Run("offset overflow", func(t *testing.T) {
		_, err := svc.ListTasks(ctx, service.ListParams{Page: math.MaxInt, Limit: 2})
		assert.ErrorIs(t, err, service.ErrInvalidPage)
		assert.Equal(t, []string{"page is too large"}, domain.ValidationMessages(err))

		last := math.MaxInt64/service.MaxLimit + 1
		page, err := svc.ListTasks(ctx, service.ListParams{Page: last, Limit: service.MaxLimit})
		require.NoError(t, err)
		assert.Empty(t, page.Tasks)
		assert.Equal(t, int64(5), page.TotalItems)
	})
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves unspecified fields and bumps updatedAt", func(t *testing.T) {
		svc, clock := newService(t, mocks.NewInMemoryTaskStore())
		created, err := svc.CreateTask(ctx, domain.TaskPatch{
			Title:       ptr("original"),
			Description: ptr("keep me"),
			Tags:        &[]string{"a"},
		})
		require.NoError(t, err)

		clock.Advance(time.Minute)
		updated, err := svc.UpdateTask(ctx, created.ID, domain.TaskPatch{Title: ptr("renamed")})

		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Title)
		assert.Equal(t, "keep me", updated.Description)
		assert.Equal(t, []string{"a"}, updated.Tags)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		stored, err := svc.GetTask(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, stored)
	})

	t.Run("stale due date is not re-checked", func(t *testing.T) {
		svc, clock := newService(t, mocks.NewInMemoryTaskStore())
		tomorrow := clock.now.Add(24 * time.Hour)
		created, err := svc.CreateTask(ctx, domain.TaskPatch{Title: ptr("t"), DueDate: &tomorrow})
		require.NoError(t, err)

		clock.Advance(72 * time.Hour)
		_, err = svc.UpdateTask(ctx, created.ID, domain.TaskPatch{Description: ptr("later")})
		assert.NoError(t, err)

		yesterday := clock.now.Add(-24 * time.Hour)
		_, err = svc.UpdateTask(ctx, created.ID, domain.TaskPatch{DueDate: &yesterday})
		assert.Equal(t, []string{domain.DueDateInPastMessage}, domain.ValidationMessages(err))

		cleared, err := svc.UpdateTask(ctx, created.ID, domain.TaskPatch{ClearDueDate: true})
		require.NoError(t, err)
		assert.Nil(t, cleared.DueDate)
	})

	t.Run("invalid merged record", func(t *testing.T) {
		memStore := mocks.NewInMemoryTaskStore()
		svc, _ := newService(t, memStore)
		created, err := svc.CreateTask(ctx, domain.TaskPatch{Title: ptr("t")})
		require.NoError(t, err)

		bad := domain.TaskPriority("critical")
		_, err = svc.UpdateTask(ctx, created.ID, domain.TaskPatch{Priority: &bad})
		assert.ErrorIs(t, err, domain.ErrValidation)

		stored, err := svc.GetTask(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskPriorityMedium, stored.Priority)
	})

	t.Run("not found", func(t *testing.T) {
		svc, _ := newService(t, mocks.NewInMemoryTaskStore())
		_, err := svc.UpdateTask(ctx, "000000000000000000000000", domain.TaskPatch{Title: ptr("x")})
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("last write wins", func(t *testing.T) {
		svc, _ := newService(t, mocks.NewInMemoryTaskStore())
		created, err := svc.CreateTask(ctx, domain.TaskPatch{Title: ptr("t")})
		require.NoError(t, err)

		_, err = svc.UpdateTask(ctx, created.ID, domain.TaskPatch{Title: ptr("first")})
		require.NoError(t, err)
		_, err = svc.UpdateTask(ctx, created.ID, domain.TaskPatch{Title: ptr("second")})
		require.NoError(t, err)

		stored, err := svc.GetTask(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "second", stored.Title)
	})

	// Known race: two updates that read the same stored version both succeed
	// and the later Replace overwrites the earlier one without a conflict.
	t.Run("known race: stale read is overwritten without conflict", func(t *testing.T) {
		memStore := mocks.NewInMemoryTaskStore()
		mockStore := &mocks.MockTaskStore{Fallback: memStore}
		svc, clock := newService(t, mockStore)
		created, err := svc.CreateTask(ctx, domain.TaskPatch{Title: ptr("base"), Description: ptr("base")})
		require.NoError(t, err)

		base, err := memStore.GetByID(ctx, created.ID)
		require.NoError(t, err)
		mockStore.GetByIDFn = func(context.Context, string) (*domain.Task, error) {
			stale := *base
			stale.Tags = append([]string{}, base.Tags...)
			return &stale, nil
		}

		clock.Advance(time.Second)
		first, err := svc.UpdateTask(ctx, created.ID, domain.TaskPatch{Title: ptr("from first")})
		require.NoError(t, err)
		assert.Equal(t, "from first", first.Title)

		clock.Advance(time.Second)
		second, err := svc.UpdateTask(ctx, created.ID, domain.TaskPatch{Description: ptr("from second")})
		require.NoError(t, err)
		assert.Equal(t, "base", second.Title)

		stored, err := memStore.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, second, stored)
		assert.Equal(t, "base", stored.Title, "first update is lost")
		assert.Equal(t, "from second", stored.Description)
	})
}

func TestUpdateTaskStatus(t *testing.T) {
	ctx := context.Background()
	memStore := mocks.NewInMemoryTaskStore()
	svc, clock := newService(t, memStore)
	created, err := svc.CreateTask(ctx, domain.TaskPatch{Title: ptr("Write report")})
	require.NoError(t, err)

	for _, bad := range []string{"", "done", "Completed", "IN-PROGRESS"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := svc.UpdateTaskStatus(ctx, created.ID, bad)
			assert.ErrorIs(t, err, domain.ErrValidation)

			stored, err := svc.GetTask(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.TaskStatusPending, stored.Status)
		})
	}

	t.Run("validation precedes lookup", func(t *testing.T) {
		_, err := svc.UpdateTaskStatus(ctx, "000000000000000000000000", "nope")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.False(t, store.IsNotFoundError(err))
	})

	t.Run("applies status", func(t *testing.T) {
		clock.Advance(time.Second)
		updated, err := svc.UpdateTaskStatus(ctx, created.ID, "completed")
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, updated.Status)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.UpdateTaskStatus(ctx, "000000000000000000000000", "completed")
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("clock moving backwards keeps updatedAt", func(t *testing.T) {
		before, err := svc.GetTask(ctx, created.ID)
		require.NoError(t, err)

		clock.Advance(-time.Hour)
		updated, err := svc.UpdateTaskStatus(ctx, created.ID, "in-progress")

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, updated.Status)
		assert.Equal(t, before.UpdatedAt, updated.UpdatedAt)
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
	})
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, mocks.NewInMemoryTaskStore())
	created, err := svc.CreateTask(ctx, domain.TaskPatch{Title: ptr("t")})
	require.NoError(t, err)

	deleted, err := svc.DeleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = svc.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	_, err = svc.DeleteTask(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		svc, _ := newService(t, mocks.NewInMemoryTaskStore())
		stats, err := svc.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStats{}, stats)
		assert.Zero(t, stats.CompletionRate())
	})

	t.Run("write report scenario", func(t *testing.T) {
		svc, _ := newService(t, mocks.NewInMemoryTaskStore())
		high := domain.TaskPriorityHigh
		created, err := svc.CreateTask(ctx, domain.TaskPatch{Title: ptr("Write report"), Priority: &high})
		require.NoError(t, err)
		_, err = svc.UpdateTaskStatus(ctx, created.ID, "completed")
		require.NoError(t, err)

		stats, err := svc.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStats{Total: 1, Completed: 1, HighPriority: 1}, stats)
		assert.Equal(t, 100.0, stats.CompletionRate())
	})

	t.Run("unavailable store", func(t *testing.T) {
		svc, _ := newService(t, &mocks.MockTaskStore{DefaultError: store.ErrStoreUnavailable})
		_, err := svc.GetStats(ctx)
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	})
}
