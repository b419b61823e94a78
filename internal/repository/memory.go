package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homedeskhq/homedesk/internal/models"
)

// MemoryStore is an in-memory Store for tests. It is safe for concurrent
// use and hands out copies so callers cannot mutate stored rows.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*models.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[uuid.UUID]*models.Task)}
}

func (s *MemoryStore) Create(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prepareForInsert(t, time.Now().UTC())
	s.tasks[t.ID] = copyTask(t)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTask(t), nil
}

func (s *MemoryStore) ListActiveRecurring(_ context.Context) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tasks []*models.Task
	for _, t := range s.tasks {
		if t.IsRecurring && t.Status == models.TaskStatusActive {
			tasks = append(tasks, copyTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID.String() < tasks[j].ID.String()
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *MemoryStore) HasFutureInstance(_ context.Context, parentID uuid.UUID, after time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == parentID &&
			t.DueDate != nil && !t.DueDate.Before(after) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateBatch(_ context.Context, tasks []*models.Task) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range tasks {
		prepareForInsert(t, now)
		s.tasks[t.ID] = copyTask(t)
	}
	return tasks, nil
}

func (s *MemoryStore) MarkCompleted(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = models.TaskStatusCompleted
	t.CompletedAt = &at
	t.UpdatedAt = at
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	for _, t := range s.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == id {
			t.ParentTaskID = nil
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// ListByParent returns the instances generated from a parent, ordered by
// due date. Test helper; not part of the Store interface.
func (s *MemoryStore) ListByParent(_ context.Context, parentID uuid.UUID) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tasks []*models.Task
	for _, t := range s.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == parentID {
			tasks = append(tasks, copyTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		di, dj := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case di == nil:
			return true
		case dj == nil:
			return false
		default:
			return di.Before(*dj)
		}
	})
	return tasks, nil
}

// Len reports the number of stored tasks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func copyTask(t *models.Task) *models.Task {
	c := *t
	c.AssignedTo = append([]string(nil), t.AssignedTo...)
	c.Tags = append([]string(nil), t.Tags...)
	c.RecurrencePattern = append(models.RawPattern(nil), t.RecurrencePattern...)
	if t.ProjectID != nil {
		id := *t.ProjectID
		c.ProjectID = &id
	}
	if t.ParentTaskID != nil {
		id := *t.ParentTaskID
		c.ParentTaskID = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return &c
}
