package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/mocks"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/service"
	"github.com/phrazzld/task-manager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Current    int   `json:"current"`
		Total      int64 `json:"total"`
		Count      int   `json:"count"`
		TotalItems int64 `json:"totalItems"`
	} `json:"pagination"`
	Errors []string `json:"errors"`
	Error  *string  `json:"error"`
}

type handlerFixture struct {
	handler *TaskHandler
	store   *mocks.MockTaskStore
	memory  *mocks.InMemoryTaskStore
	now     time.Time
}

func newFixture(t *testing.T, exposeErrors bool) *handlerFixture {
	t.Helper()
	memory := mocks.NewInMemoryTaskStore()
	taskStore := &mocks.MockTaskStore{Fallback: memory}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	log, _ := logger.GetTestLogger(t)
	svc, err := service.NewTaskService(taskStore, log, service.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return &handlerFixture{
		handler: NewTaskHandler(svc, log, exposeErrors),
		store:   taskStore,
		memory:  memory,
		now:     now,
	}
}

// do invokes fn with an optional chi id parameter and decodes the envelope.
func do(
	t *testing.T,
	fn http.HandlerFunc,
	method, target, id, body string,
) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	rec := httptest.NewRecorder()
	fn(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decodeTask(t *testing.T, env envelope) domain.Task {
	t.Helper()
	var task domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

func (f *handlerFixture) create(t *testing.T, body string) domain.Task {
	t.Helper()
	rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeTask(t, env)
}

func TestCreateTask(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := newFixture(t, false)

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", `{"title":"Write report"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, env.Success)
		assert.Equal(t, "Task created successfully", env.Message)
		task := decodeTask(t, env)
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
		assert.Equal(t, "general", task.Category)
		assert.Equal(t, []string{}, task.Tags)
		assert.Equal(t, task.CreatedAt, task.UpdatedAt)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(env.Data, &raw))
		assert.NotContains(t, raw, "dueDate")
	})

	t.Run("full payload", func(t *testing.T) {
		f := newFixture(t, false)

		task := f.create(t, `{
			"title": "Plan sprint",
			"description": "  next two weeks ",
			"status": "in-progress",
			"priority": "urgent",
			"category": "work",
			"dueDate": "2025-06-10",
			"tags": [" a ", "b", "b"],
			"assignedTo": "sam"
		}`)

		assert.Equal(t, "next two weeks", task.Description)
		assert.Equal(t, domain.TaskStatusInProgress, task.Status)
		assert.Equal(t, domain.TaskPriorityUrgent, task.Priority)
		assert.Equal(t, "work", task.Category)
		require.NotNil(t, task.DueDate)
		assert.True(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC).Equal(*task.DueDate))
		assert.Equal(t, []string{"a", "b", "b"}, task.Tags)
		assert.Equal(t, "sam", task.AssignedTo)
	})

	t.Run("every violated field is reported", func(t *testing.T) {
		f := newFixture(t, false)
		body := `{"title":"` + strings.Repeat("x", 101) + `","dueDate":"2025-05-31T12:00:00Z","status":"done"}`

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, env.Success)
		assert.Equal(t, "Invalid input data", env.Message)
		assert.Len(t, env.Errors, 3)
		assert.Contains(t, env.Errors, "title cannot exceed 100 characters")
		assert.Contains(t, env.Errors, domain.DueDateInPastMessage)
		assert.Zero(t, f.memory.Len())
	})

	t.Run("past due date persists nothing", func(t *testing.T) {
		f := newFixture(t, false)
		yesterday := f.now.Add(-24 * time.Hour).Format("2006-01-02")

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "",
			`{"title":"late","dueDate":"`+yesterday+`"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{domain.DueDateInPastMessage}, env.Errors)
		assert.Zero(t, f.memory.Len())
	})

	t.Run("empty body", func(t *testing.T) {
		f := newFixture(t, false)

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"title is required"}, env.Errors)
	})

	t.Run("malformed json", func(t *testing.T) {
		f := newFixture(t, false)

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", `{"title":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, env.Errors)
	})

	t.Run("trailing data after json", func(t *testing.T) {
		f := newFixture(t, false)

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", `{"title":"x"} junk`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, env.Errors)
		assert.Zero(t, f.memory.Len())
	})

	t.Run("unparsable due date", func(t *testing.T) {
		f := newFixture(t, false)

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", `{"title":"t","dueDate":"soon"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{domain.InvalidDueDateMessage}, env.Errors)
	})

	t.Run("unparsable due date reported with other field errors", func(t *testing.T) {
		f := newFixture(t, false)
		body := `{"title":"` + strings.Repeat("t", domain.MaxTitleLength+1) + `","status":"done","dueDate":"not-a-date"}`

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{
			"title cannot exceed 100 characters",
			"status must be one of: pending, in-progress, completed",
			domain.InvalidDueDateMessage,
		}, env.Errors)
		assert.Zero(t, f.memory.Len())
	})

	t.Run("store failure hides detail in production", func(t *testing.T) {
		f := newFixture(t, false)
		f.store.CreateFn = func(context.Context, *domain.Task) error {
			return errors.New("connection reset by peer")
		}

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", `{"title":"t"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Error creating task", env.Message)
		assert.Nil(t, env.Error)
	})

	t.Run("store failure shows detail in development", func(t *testing.T) {
		f := newFixture(t, true)
		f.store.CreateFn = func(context.Context, *domain.Task) error {
			return errors.New("connection reset by peer")
		}

		rec, env := do(t, f.handler.CreateTask, http.MethodPost, "/api/tasks", "", `{"title":"t"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, *env.Error, "connection reset by peer")
	})
}

func TestGetTask(t *testing.T) {
	f := newFixture(t, false)
	created := f.create(t, `{"title":"round trip","tags":["x"]}`)

	rec, env := do(t, f.handler.GetTask, http.MethodGet, "/api/tasks/"+created.ID, created.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeTask(t, env))

	_, again := do(t, f.handler.GetTask, http.MethodGet, "/api/tasks/"+created.ID, created.ID, "")
	assert.JSONEq(t, string(env.Data), string(again.Data))

	for _, id := range []string{"000000000000000000000000", "not-an-id"} {
		rec, env := do(t, f.handler.GetTask, http.MethodGet, "/api/tasks/"+id, id, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
		assert.Equal(t, "Task not found", env.Message)
		assert.Nil(t, env.Error)
	}
}

func TestGetTaskStoreUnavailable(t *testing.T) {
	f := newFixture(t, false)
	f.store.GetByIDFn = func(context.Context, string) (*domain.Task, error) {
		return nil, store.NewStoreError("task", "get", "collection unavailable", store.ErrStoreUnavailable)
	}

	rec, env := do(t, f.handler.GetTask, http.MethodGet, "/api/tasks/x", "x", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Database unavailable", env.Message)
}

func TestListTasks(t *testing.T) {
	f := newFixture(t, false)
	for i := 0; i < 5; i++ {
		priority := "low"
		if i < 2 {
			priority = "high"
		}
		f.create(t, `{"title":"task","priority":"`+priority+`"}`)
	}

	tests := []struct {
		name           string
		query          string
		wantCount      int
		wantCurrent    int
		wantTotal      int64
		wantTotalItems int64
	}{
		{"defaults", "", 5, 1, 1, 5},
		{"remainder page", "?limit=2&page=3", 1, 3, 3, 5},
		{"filter", "?priority=high", 2, 1, 1, 2},
		{"no match", "?status=completed", 0, 1, 0, 0},
		{"past the end", "?page=9&limit=2", 0, 9, 3, 5},
		{"largest page size", "?limit=1000", 5, 1, 1, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := do(t, f.handler.ListTasks, http.MethodGet, "/api/tasks"+tc.query, "", "")

			require.Equal(t, http.StatusOK, rec.Code)
			var tasks []domain.Task
			require.NoError(t, json.Unmarshal(env.Data, &tasks))
			assert.NotNil(t, tasks, "data is always an array")
			assert.Len(t, tasks, tc.wantCount)
			require.NotNil(t, env.Pagination)
			assert.Equal(t, tc.wantCurrent, env.Pagination.Current)
			assert.Equal(t, tc.wantTotal, env.Pagination.Total)
			assert.Equal(t, tc.wantCount, env.Pagination.Count)
			assert.Equal(t, tc.wantTotalItems, env.Pagination.TotalItems)
		})
	}

	for _, query := range []string{"?limit=abc", "?page=0", "?limit=-1", "?page=1.5"} {
		t.Run("invalid "+query, func(t *testing.T) {
			rec, env := do(t, f.handler.ListTasks, http.MethodGet, "/api/tasks"+query, "", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Len(t, env.Errors, 1)
		})
	}

	oversized := map[string]string{
		"?limit=1001":                          "limit cannot exceed 1000",
		"?limit=9223372036854775807":           "limit cannot exceed 1000",
		"?page=9223372036854775807&limit=2":    "page is too large",
		"?page=9223372036854775807&limit=1000": "page is too large",
	}
	for query, want := range oversized {
		t.Run("oversized "+query, func(t *testing.T) {
			rec, env := do(t, f.handler.ListTasks, http.MethodGet, "/api/tasks"+query, "", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, []string{want}, env.Errors)
		})
	}
}

func TestUpdateTask(t *testing.T) {
	t.Run("applies supplied fields only", func(t *testing.T) {
		f := newFixture(t, false)
		created := f.create(t, `{"title":"original","description":"keep","dueDate":"2025-07-01"}`)

		rec, env := do(t, f.handler.UpdateTask, http.MethodPut, "/api/tasks/"+created.ID, created.ID,
			`{"title":"renamed","priority":"high"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Task updated successfully", env.Message)
		updated := decodeTask(t, env)
		assert.Equal(t, "renamed", updated.Title)
		assert.Equal(t, domain.TaskPriorityHigh, updated.Priority)
		assert.Equal(t, "keep", updated.Description)
		assert.Equal(t, created.DueDate, updated.DueDate)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("null due date clears it", func(t *testing.T) {
		f := newFixture(t, false)
		created := f.create(t, `{"title":"t","dueDate":"2025-07-01"}`)

		_, env := do(t, f.handler.UpdateTask, http.MethodPut, "/api/tasks/"+created.ID, created.ID, `{"dueDate":null}`)

		assert.Nil(t, decodeTask(t, env).DueDate)
	})

	t.Run("invalid merged record", func(t *testing.T) {
		f := newFixture(t, false)
		created := f.create(t, `{"title":"t"}`)

		rec, env := do(t, f.handler.UpdateTask, http.MethodPut, "/api/tasks/"+created.ID, created.ID,
			`{"title":"","priority":"critical"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Len(t, env.Errors, 2)
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t, false)

		rec, _ := do(t, f.handler.UpdateTask, http.MethodPut, "/api/tasks/x", "5f0000000000000000000000", `{"title":"t"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdateTaskStatus(t *testing.T) {
	f := newFixture(t, false)
	created := f.create(t, `{"title":"t"}`)
	target := "/api/tasks/" + created.ID + "/status"

	for _, body := range []string{`{"status":"done"}`, `{"status":"Completed"}`, `{}`} {
		rec, env := do(t, f.handler.UpdateTaskStatus, http.MethodPatch, target, created.ID, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Len(t, env.Errors, 1)
	}

	_, env := do(t, f.handler.GetTask, http.MethodGet, "/api/tasks/"+created.ID, created.ID, "")
	assert.Equal(t, domain.TaskStatusPending, decodeTask(t, env).Status, "rejected updates leave status unchanged")

	rec, _ := do(t, f.handler.UpdateTaskStatus, http.MethodPatch, target, "000000000000000000000000", `{"status":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "status is validated before lookup")

	rec, _ = do(t, f.handler.UpdateTaskStatus, http.MethodPatch, target, "000000000000000000000000", `{"status":"completed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, f.handler.UpdateTaskStatus, http.MethodPatch, target, created.ID, `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.TaskStatusCompleted, decodeTask(t, env).Status)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t, false)
	created := f.create(t, `{"title":"t"}`)

	rec, env := do(t, f.handler.DeleteTask, http.MethodDelete, "/api/tasks/"+created.ID, created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task deleted successfully", env.Message)
	assert.Equal(t, created.ID, decodeTask(t, env).ID)

	rec, _ = do(t, f.handler.GetTask, http.MethodGet, "/api/tasks/"+created.ID, created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, f.handler.DeleteTask, http.MethodDelete, "/api/tasks/"+created.ID, created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStats(t *testing.T) {
	t.Run("empty collection", func(t *testing.T) {
		f := newFixture(t, false)

		rec, env := do(t, f.handler.GetStats, http.MethodGet, "/api/tasks/stats/summary", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`{"total":0,"pending":0,"inProgress":0,"completed":0,"highPriority":0,"completionRate":0}`,
			string(env.Data))
	})

	t.Run("write report scenario", func(t *testing.T) {
		f := newFixture(t, false)
		created := f.create(t, `{"title":"Write report","priority":"high"}`)
		rec, _ := do(t, f.handler.UpdateTaskStatus, http.MethodPatch, "/", created.ID, `{"status":"completed"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		_, env := do(t, f.handler.GetStats, http.MethodGet, "/api/tasks/stats/summary", "", "")

		assert.JSONEq(t,
			`{"total":1,"pending":0,"inProgress":0,"completed":1,"highPriority":1,"completionRate":"100.0"}`,
			string(env.Data))
	})

	t.Run("rounding", func(t *testing.T) {
		f := newFixture(t, false)
		f.create(t, `{"title":"t","status":"completed"}`)
		for i := 0; i < 5; i++ {
			f.create(t, `{"title":"t"}`)
		}

		_, env := do(t, f.handler.GetStats, http.MethodGet, "/api/tasks/stats/summary", "", "")

		var stats map[string]interface{}
		require.NoError(t, json.Unmarshal(env.Data, &stats))
		assert.Equal(t, "16.7", stats["completionRate"])
	})
}
