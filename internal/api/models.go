package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/phrazzld/task-manager-api/internal/domain"
)

// dueDateLayouts are tried in order when parsing dueDate strings.
// Layouts without a zone are read as UTC.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// TaskRequest is the payload of create and update requests. Absent fields
// are nil and leave the stored value untouched.
type TaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	Priority    *string         `json:"priority"`
	Category    *string         `json:"category"`
	DueDate     json.RawMessage `json:"dueDate"`
	Tags        *[]string       `json:"tags"`
	AssignedTo  *string         `json:"assignedTo"`
}

// ToPatch converts the request into a domain patch. A JSON null dueDate
// clears the due date; an unparsable one sets InvalidDueDate and is reported
// when the write is validated.
func (req TaskRequest) ToPatch() domain.TaskPatch {
	patch := domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		AssignedTo:  req.AssignedTo,
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		patch.Status = &s
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		patch.Priority = &p
	}

	if len(req.DueDate) > 0 {
		if bytes.Equal(bytes.TrimSpace(req.DueDate), []byte("null")) {
			patch.ClearDueDate = true
			return patch
		}
		due, err := parseDueDate(req.DueDate)
		if err != nil {
			patch.InvalidDueDate = true
			return patch
		}
		patch.DueDate = &due
	}
	return patch
}

func parseDueDate(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	var lastErr error
	for _, layout := range dueDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// StatusRequest is the payload of the status-only update.
type StatusRequest struct {
	Status string `json:"status"`
}

// StatsResponse is the body of the stats summary. CompletionRate is a
// one-decimal string when there are tasks and the number 0 otherwise.
type StatsResponse struct {
	Total          int64       `json:"total"`
	Pending        int64       `json:"pending"`
	InProgress     int64       `json:"inProgress"`
	Completed      int64       `json:"completed"`
	HighPriority   int64       `json:"highPriority"`
	CompletionRate interface{} `json:"completionRate"`
}

func newStatsResponse(s domain.TaskStats) StatsResponse {
	var rate interface{} = 0
	if s.Total > 0 {
		rate = formatRate(s.CompletionRate())
	}
	return StatsResponse{
		Total:          s.Total,
		Pending:        s.Pending,
		InProgress:     s.InProgress,
		Completed:      s.Completed,
		HighPriority:   s.HighPriority,
		CompletionRate: rate,
	}
}

// HealthResponse is the body of the liveness probe.
type HealthResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
	Database    string `json:"database"`
}
