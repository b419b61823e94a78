// Package service orchestrates recurring-task generation over the task
// store: the periodic batch run and the completion cascade. Both entry
// points are stateless and re-entrant; idempotence comes from the store's
// future-instance check, not from locking.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/homedeskhq/homedesk/internal/models"
	"github.com/homedeskhq/homedesk/internal/recurrence"
	"github.com/homedeskhq/homedesk/internal/repository"
)

const (
	// batchHorizonDays bounds how far ahead the periodic run materializes
	// instances.
	batchHorizonDays = 30

	// cascadeHorizonDays is the window the completion cascade generates
	// into; only the first occurrence in it is ever persisted.
	cascadeHorizonDays = 60
)

// ProcessResult aggregates a batch run. A non-empty Errors list is not a
// failure of the run; partial success is the expected steady state.
type ProcessResult struct {
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
}

// Scheduler generates task instances from recurring parents.
type Scheduler struct {
	store repository.Store
	clock Clock
	log   *slog.Logger
}

func NewScheduler(store repository.Store, clock Clock, log *slog.Logger) *Scheduler {
	return &Scheduler{store: store, clock: clock, log: log}
}

// Process fetches every active recurring parent and materializes upcoming
// instances for each. One parent's failure never cancels its siblings: the
// error is tagged with the parent's title and the run continues.
func (s *Scheduler) Process(ctx context.Context) (*ProcessResult, error) {
	parents, err := s.store.ListActiveRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}

	now := s.clock.Now()
	horizon := now.AddDate(0, 0, batchHorizonDays)
	tomorrow := startOfDay(now).AddDate(0, 0, 1)

	res := &ProcessResult{Errors: []string{}}
	for _, parent := range parents {
		n, err := s.processParent(ctx, parent, horizon, tomorrow, now)
		if err != nil {
			s.log.Warn("recurring parent skipped",
				slog.String("task", parent.Title), slog.Any("err", err))
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", parent.Title, err))
			continue
		}
		res.Created += n
	}

	s.log.Info("recurring batch finished",
		slog.Int("parents", len(parents)),
		slog.Int("created", res.Created),
		slog.Int("errors", len(res.Errors)))
	return res, nil
}

func (s *Scheduler) processParent(ctx context.Context, parent *models.Task, horizon, tomorrow, now time.Time) (int, error) {
	pattern, err := models.ParsePattern(parent.RecurrencePattern)
	if err != nil {
		return 0, err
	}
	if pattern == nil {
		// Flagged recurring but no pattern stored; nothing to generate.
		return 0, nil
	}

	// A parent that already has an upcoming instance is never given a
	// second one, whatever the trigger frequency.
	exists, err := s.store.HasFutureInstance(ctx, parent.ID, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("check existing instances: %w", err)
	}
	if exists {
		return 0, nil
	}

	drafts := recurrence.Generate(parent, *pattern, horizon, now)
	if len(drafts) == 0 {
		return 0, nil
	}

	if _, err := s.store.CreateBatch(ctx, instancesFromDrafts(drafts)); err != nil {
		return 0, fmt.Errorf("insert instances: %w", err)
	}
	return len(drafts), nil
}

// instancesFromDrafts turns computed occurrences into insertable rows.
// Instances are terminal leaves: never recurring, always active.
func instancesFromDrafts(drafts []recurrence.Draft) []*models.Task {
	tasks := make([]*models.Task, len(drafts))
	for i, d := range drafts {
		due := d.DueDate
		parentID := d.ParentTaskID
		tasks[i] = &models.Task{
			Title:        d.Title,
			Description:  d.Description,
			Status:       models.TaskStatusActive,
			Priority:     d.Priority,
			AssignedTo:   d.AssignedTo,
			Tags:         d.Tags,
			ProjectID:    d.ProjectID,
			DueDate:      &due,
			IsRecurring:  false,
			ParentTaskID: &parentID,
		}
	}
	return tasks
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
