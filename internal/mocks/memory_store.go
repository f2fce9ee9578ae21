package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InMemoryTaskStore is a concurrency-safe store.TaskStore backed by a map.
// IDs are ObjectID hex strings so id handling matches the MongoDB store.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

var _ store.TaskStore = (*InMemoryTaskStore)(nil)

// NewInMemoryTaskStore creates an empty store.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{tasks: make(map[string]*domain.Task)}
}

func clone(t *domain.Task) *domain.Task {
	c := *t
	c.Tags = append([]string{}, t.Tags...)
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return &c
}

func (s *InMemoryTaskStore) lookup(id string) (*domain.Task, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, store.ErrTaskNotFound
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return t, nil
}

// Len returns the number of stored tasks.
func (s *InMemoryTaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Create implements store.TaskStore.
func (s *InMemoryTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.ID = primitive.NewObjectID().Hex()
	s.tasks[task.ID] = clone(task)
	return nil
}

// GetByID implements store.TaskStore.
func (s *InMemoryTaskStore) GetByID(_ context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return clone(t), nil
}

func matches(t *domain.Task, f store.TaskFilter) bool {
	return (f.Status == "" || string(t.Status) == f.Status) &&
		(f.Priority == "" || string(t.Priority) == f.Priority) &&
		(f.Category == "" || t.Category == f.Category)
}

// List implements store.TaskStore.
func (s *InMemoryTaskStore) List(
	_ context.Context,
	filter store.TaskFilter,
	page store.Page,
) ([]*domain.Task, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if matches(t, filter) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := page.Skip()
	if start > total {
		start = total
	}
	end := total
	if page.Limit > 0 && start+int64(page.Limit) < total {
		end = start + int64(page.Limit)
	}

	out := make([]*domain.Task, 0, end-start)
	for _, t := range matched[start:end] {
		out = append(out, clone(t))
	}
	return out, total, nil
}

// Replace implements store.TaskStore.
func (s *InMemoryTaskStore) Replace(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(task.ID); err != nil {
		return err
	}
	s.tasks[task.ID] = clone(task)
	return nil
}

// UpdateStatus implements store.TaskStore.
func (s *InMemoryTaskStore) UpdateStatus(
	_ context.Context,
	id string,
	status domain.TaskStatus,
	updatedAt time.Time,
) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	t.Status = status
	if ts := domain.NormalizeTime(updatedAt); ts.After(t.UpdatedAt) {
		t.UpdatedAt = ts
	}
	return clone(t), nil
}

// Delete implements store.TaskStore.
func (s *InMemoryTaskStore) Delete(_ context.Context, id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	delete(s.tasks, id)
	return t, nil
}

// Stats implements store.TaskStore.
func (s *InMemoryTaskStore) Stats(_ context.Context) (domain.TaskStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats domain.TaskStats
	for _, t := range s.tasks {
		stats.Total++
		switch t.Status {
		case domain.TaskStatusPending:
			stats.Pending++
		case domain.TaskStatusInProgress:
			stats.InProgress++
		case domain.TaskStatusCompleted:
			stats.Completed++
		}
		if t.Priority == domain.TaskPriorityHigh {
			stats.HighPriority++
		}
	}
	return stats, nil
}
