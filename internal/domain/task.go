package domain

import (
	"strings"
	"time"
)

// TaskStatus represents the progress state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskPriority represents how urgent a task is.
type TaskPriority string

// Possible task priority values
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// DefaultCategory is assigned when a task is saved without a category.
const DefaultCategory = "general"

// Field length limits, in characters.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxCategoryLength    = 50
)

// Task is the only persisted entity: a unit of work with a status, a priority
// and some optional descriptive metadata.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"       validate:"required,max=100"`
	Description string       `json:"description" validate:"max=500"`
	Status      TaskStatus   `json:"status"      validate:"oneof=pending in-progress completed"`
	Priority    TaskPriority `json:"priority"    validate:"oneof=low medium high urgent"`
	Category    string       `json:"category"    validate:"max=50"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Tags        []string     `json:"tags"`
	AssignedTo  string       `json:"assignedTo,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TaskPatch carries the fields a client supplied on create or update.
// A nil pointer means the field was not supplied and must be left alone.
// InvalidDueDate marks a due date that was supplied but could not be parsed;
// it is reported by ValidateWrite alongside any other field failure.
type TaskPatch struct {
	Title          *string
	Description    *string
	Status         *TaskStatus
	Priority       *TaskPriority
	Category       *string
	DueDate        *time.Time
	ClearDueDate   bool
	InvalidDueDate bool
	Tags           *[]string
	AssignedTo     *string
}

// SetsDueDate reports whether applying the patch writes a new due date.
func (p TaskPatch) SetsDueDate() bool {
	return p.DueDate != nil && !p.ClearDueDate
}

// NewTask builds a task from a patch on top of the documented defaults.
// The returned task has CreatedAt == UpdatedAt == now and is not validated.
func NewTask(patch TaskPatch, now time.Time) *Task {
	now = NormalizeTime(now)
	task := &Task{
		Status:    TaskStatusPending,
		Priority:  TaskPriorityMedium,
		Category:  DefaultCategory,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	task.Apply(patch)
	return task
}

// Apply copies every supplied field of the patch onto the task, trimming
// string values. It does not touch timestamps.
func (t *Task) Apply(patch TaskPatch) {
	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Category != nil {
		t.Category = strings.TrimSpace(*patch.Category)
		if t.Category == "" {
			t.Category = DefaultCategory
		}
	}
	if patch.ClearDueDate {
		t.DueDate = nil
	} else if patch.DueDate != nil {
		due := NormalizeTime(*patch.DueDate)
		t.DueDate = &due
	}
	if patch.Tags != nil {
		tags := make([]string, 0, len(*patch.Tags))
		for _, tag := range *patch.Tags {
			tags = append(tags, strings.TrimSpace(tag))
		}
		t.Tags = tags
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = strings.TrimSpace(*patch.AssignedTo)
	}
}

// Touch refreshes UpdatedAt. It never moves UpdatedAt before CreatedAt.
func (t *Task) Touch(now time.Time) {
	now = NormalizeTime(now)
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

// NormalizeTime converts to UTC and truncates to millisecond precision,
// the resolution of BSON dates.
func NormalizeTime(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Millisecond)
}

// IsValidTaskStatus checks if the given status is a known TaskStatus.
// Matching is exact and case-sensitive.
func IsValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// IsValidTaskPriority checks if the given priority is a known TaskPriority.
func IsValidTaskPriority(priority TaskPriority) bool {
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	default:
		return false
	}
}
