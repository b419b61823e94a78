// Package repository persists tasks. The production store runs on
// PostgreSQL; a SQLite store covers local development and tests, and an
// in-memory store backs unit tests that need fault injection.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/homedeskhq/homedesk/internal/models"
)

// ErrNotFound is returned when a task id has no row.
var ErrNotFound = errors.New("task not found")

// Store persists and retrieves tasks.
type Store interface {
	// Create inserts a task, assigning its ID and timestamps when unset.
	Create(ctx context.Context, t *models.Task) error

	// GetByID returns the task with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)

	// ListActiveRecurring returns every active recurring parent task.
	ListActiveRecurring(ctx context.Context) ([]*models.Task, error)

	// HasFutureInstance reports whether the parent already has a generated
	// instance due at or after the given time.
	HasFutureInstance(ctx context.Context, parentID uuid.UUID, after time.Time) (bool, error)

	// CreateBatch inserts the given tasks in one transaction and returns
	// them with IDs and timestamps assigned.
	CreateBatch(ctx context.Context, tasks []*models.Task) ([]*models.Task, error)

	// MarkCompleted sets the task's status to completed and stamps the
	// completion time. Returns ErrNotFound when the id has no row.
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error

	// Delete removes a task by id. Instances generated from a deleted
	// parent are kept; only their parent reference is cleared.
	Delete(ctx context.Context, id uuid.UUID) error

	// Close releases the underlying connection.
	Close() error
}
