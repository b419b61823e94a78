package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Task status constants
const (
	TaskStatusActive    = "active"
	TaskStatusCompleted = "completed"
	TaskStatusDraft     = "draft"
	TaskStatusArchived  = "archived"
	TaskStatusPending   = "pending"
)

// Priority constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a household work item. A task with IsRecurring set owns a
// recurrence pattern and zero or more generated instances; an instance
// carries ParentTaskID and is never itself recurring.
type Task struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	Title             string         `db:"title" json:"title"`
	Description       string         `db:"description" json:"description"`
	Status            string         `db:"status" json:"status"`
	Priority          string         `db:"priority" json:"priority"`
	AssignedTo        pq.StringArray `db:"assigned_to" json:"assigned_to"`
	ProjectID         *uuid.UUID     `db:"project_id" json:"project_id,omitempty"`
	Tags              pq.StringArray `db:"tags" json:"tags"`
	DueDate           *time.Time     `db:"due_date" json:"due_date,omitempty"`
	IsRecurring       bool           `db:"is_recurring" json:"is_recurring"`
	RecurrencePattern RawPattern     `db:"recurrence_pattern" json:"recurrence_pattern,omitempty"`
	ParentTaskID      *uuid.UUID     `db:"parent_task_id" json:"parent_task_id,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
	CompletedAt       *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}
