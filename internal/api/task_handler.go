package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/task-manager-api/internal/api/shared"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/service"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
	errorResponder
}

// NewTaskHandler creates a new TaskHandler.
// With exposeErrors set, 5xx responses carry the raw error text.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger, exposeErrors bool) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService:    taskService,
		logger:         logger.With("component", "task_handler"),
		errorResponder: errorResponder{exposeDetail: exposeErrors},
	}
}

// ListTasks handles GET /api/tasks requests
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		h.HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.taskService.ListTasks(r.Context(), params)
	if err != nil {
		h.HandleAPIError(w, r, err, "Error fetching tasks")
		return
	}

	shared.RespondWithPage(w, r, page.Tasks, shared.Pagination{
		Current:    page.Page,
		Total:      page.TotalPages(),
		Count:      len(page.Tasks),
		TotalItems: page.TotalItems,
	})
}

// GetTask handles GET /api/tasks/{id} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.GetTask(r.Context(), getPathID(r))
	if err != nil {
		h.HandleAPIError(w, r, err, "Error fetching task")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, "", task)
}

// decodeTaskRequest reads a TaskRequest body and converts it to a patch,
// writing the error response itself on failure.
func (h *TaskHandler) decodeTaskRequest(w http.ResponseWriter, r *http.Request) (TaskRequest, bool) {
	var req TaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).
			Debug("rejected task payload", "error", err)
		h.HandleAPIError(w, r, err, "")
		return TaskRequest{}, false
	}
	return req, true
}

// CreateTask handles POST /api/tasks requests
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTaskRequest(w, r)
	if !ok {
		return
	}
	patch := req.ToPatch()

	task, err := h.taskService.CreateTask(r.Context(), patch)
	if err != nil {
		h.HandleAPIError(w, r, err, "Error creating task")
		return
	}

	shared.RespondWithData(w, r, http.StatusCreated, "Task created successfully", task)
}

// UpdateTask handles PUT /api/tasks/{id} requests
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTaskRequest(w, r)
	if !ok {
		return
	}
	patch := req.ToPatch()

	task, err := h.taskService.UpdateTask(r.Context(), getPathID(r), patch)
	if err != nil {
		h.HandleAPIError(w, r, err, "Error updating task")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, "Task updated successfully", task)
}

// UpdateTaskStatus handles PATCH /api/tasks/{id}/status requests
func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.UpdateTaskStatus(r.Context(), getPathID(r), req.Status)
	if err != nil {
		h.HandleAPIError(w, r, err, "Error updating task status")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, "Task status updated successfully", task)
}

// DeleteTask handles DELETE /api/tasks/{id} requests
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.DeleteTask(r.Context(), getPathID(r))
	if err != nil {
		h.HandleAPIError(w, r, err, "Error deleting task")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, "Task deleted successfully", task)
}

// GetStats handles GET /api/tasks/stats/summary requests
func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskService.GetStats(r.Context())
	if err != nil {
		h.HandleAPIError(w, r, err, "Error fetching statistics")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, "", newStatsResponse(stats))
}
