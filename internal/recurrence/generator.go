package recurrence

import (
	"time"

	"github.com/google/uuid"

	"github.com/homedeskhq/homedesk/internal/models"
)

// Draft is a computed occurrence that has not been persisted yet. It carries
// everything an instance inherits from its parent plus the occurrence date.
type Draft struct {
	Title        string
	Description  string
	Priority     string
	AssignedTo   []string
	Tags         []string
	ProjectID    *uuid.UUID
	ParentTaskID uuid.UUID
	DueDate      time.Time
}

// Generate materializes the parent's future occurrences up to horizon.
// The anchor starts at the parent's due date (or now when it has none) and
// advances occurrence by occurrence, so intervals greater than one are
// measured from the previous occurrence rather than the original anchor.
// Generation stops when the pattern ends, the horizon is exceeded, or the
// pattern's maxOccurrences cap is reached.
func Generate(parent *models.Task, pattern models.RecurrencePattern, horizon, now time.Time) []Draft {
	anchor := now
	if parent.DueDate != nil {
		anchor = *parent.DueDate
	}

	assignedTo := append([]string(nil), parent.AssignedTo...)
	tags := append([]string(nil), parent.Tags...)

	var drafts []Draft
	for {
		next, ok := NextDate(anchor, pattern)
		if !ok || next.After(horizon) {
			break
		}

		drafts = append(drafts, Draft{
			Title:        parent.Title,
			Description:  parent.Description,
			Priority:     parent.Priority,
			AssignedTo:   assignedTo,
			Tags:         tags,
			ProjectID:    parent.ProjectID,
			ParentTaskID: parent.ID,
			DueDate:      next,
		})
		anchor = next

		if pattern.MaxOccurrences != nil && len(drafts) >= *pattern.MaxOccurrences {
			break
		}
	}
	return drafts
}
