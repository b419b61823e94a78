package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/homedeskhq/homedesk/internal/models"
	"github.com/homedeskhq/homedesk/internal/recurrence"
	"github.com/homedeskhq/homedesk/internal/repository"
)

// CompleteResult reports a completion and its cascade. GenerationError is
// informational: the completion itself committed even when the next
// instance could not be created.
type CompleteResult struct {
	Success         bool       `json:"success"`
	NextTaskID      *uuid.UUID `json:"nextTaskId,omitempty"`
	GenerationError string     `json:"-"`
}

// CompleteInstance marks the task completed and, when it was generated
// from a still-recurring parent, creates exactly the next instance. Only
// the status update is fatal; the cascade is best effort and reported
// separately.
func (s *Scheduler) CompleteInstance(ctx context.Context, id uuid.UUID) (*CompleteResult, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}

	now := s.clock.Now()
	if err := s.store.MarkCompleted(ctx, id, now); err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}

	res := &CompleteResult{Success: true}
	if t.ParentTaskID == nil {
		return res, nil
	}

	next, err := s.generateNext(ctx, *t.ParentTaskID, now)
	if err != nil {
		// The completion already committed; never roll it back because
		// the next occurrence could not be created.
		s.log.Warn("next instance generation failed",
			slog.String("task", id.String()), slog.Any("err", err))
		res.GenerationError = err.Error()
		return res, nil
	}
	if next != nil {
		res.NextTaskID = &next.ID
	}
	return res, nil
}

// generateNext creates at most one new instance for the parent, regardless
// of how many occurrences the pattern could produce in the window.
func (s *Scheduler) generateNext(ctx context.Context, parentID uuid.UUID, now time.Time) (*models.Task, error) {
	parent, err := s.store.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Parent was deleted after this instance was generated;
			// the instance lives on but there is nothing to cascade.
			return nil, nil
		}
		return nil, fmt.Errorf("load parent: %w", err)
	}
	if !parent.IsRecurring {
		return nil, nil
	}

	pattern, err := models.ParsePattern(parent.RecurrencePattern)
	if err != nil {
		return nil, err
	}
	if pattern == nil {
		return nil, nil
	}

	horizon := now.AddDate(0, 0, cascadeHorizonDays)
	drafts := recurrence.Generate(parent, *pattern, horizon, now)
	if len(drafts) == 0 {
		return nil, nil
	}

	created, err := s.store.CreateBatch(ctx, instancesFromDrafts(drafts[:1]))
	if err != nil {
		return nil, fmt.Errorf("insert next instance: %w", err)
	}
	return created[0], nil
}
