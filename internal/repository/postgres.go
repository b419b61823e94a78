package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/homedeskhq/homedesk/internal/models"
)

// PostgresSchema is applied by cmd/migrate. parent_task_id uses ON DELETE
// SET NULL: deleting a recurring parent must not retroactively delete the
// instances generated from it.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                 UUID PRIMARY KEY,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'active',
	priority           TEXT NOT NULL DEFAULT 'medium',
	assigned_to        TEXT[] NOT NULL DEFAULT '{}',
	project_id         UUID,
	tags               TEXT[] NOT NULL DEFAULT '{}',
	due_date           TIMESTAMPTZ,
	is_recurring       BOOLEAN NOT NULL DEFAULT FALSE,
	recurrence_pattern TEXT,
	parent_task_id     UUID REFERENCES tasks(id) ON DELETE SET NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	completed_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tasks_recurring ON tasks (is_recurring, status);
CREATE INDEX IF NOT EXISTS idx_tasks_parent_due ON tasks (parent_task_id, due_date);
`

const taskColumns = `id, title, description, status, priority, assigned_to, project_id,
	tags, due_date, is_recurring, recurrence_pattern, parent_task_id,
	created_at, updated_at, completed_at`

// PostgresStore is the production task store.
type PostgresStore struct {
	db *sqlx.DB
}

// PostgresConfig holds the connection parameters for the production store.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Create(ctx context.Context, t *models.Task) error {
	prepareForInsert(t, time.Now().UTC())

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (:id, :title, :description, :status, :priority, :assigned_to, :project_id,
			:tags, :due_date, :is_recurring, :recurrence_pattern, :parent_task_id,
			:created_at, :updated_at, :completed_at)`, t)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	err := s.db.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) ListActiveRecurring(ctx context.Context) ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.db.SelectContext(ctx, &tasks, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_recurring AND status = $1
		ORDER BY created_at`, models.TaskStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	return tasks, nil
}

func (s *PostgresStore) HasFutureInstance(ctx context.Context, parentID uuid.UUID, after time.Time) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM tasks WHERE parent_task_id = $1 AND due_date >= $2
		)`, parentID, after)
	if err != nil {
		return false, fmt.Errorf("check future instance: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CreateBatch(ctx context.Context, tasks []*models.Task) ([]*models.Task, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	now := time.Now().UTC()
	for _, t := range tasks {
		prepareForInsert(t, now)
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (:id, :title, :description, :status, :priority, :assigned_to, :project_id,
				:tags, :due_date, :is_recurring, :recurrence_pattern, :parent_task_id,
				:created_at, :updated_at, :completed_at)`, t); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("insert task %q: %w", t.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return tasks, nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = $1, completed_at = $2, updated_at = $2
		WHERE id = $3`, models.TaskStatusCompleted, at, id)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// prepareForInsert fills identity and bookkeeping fields and normalizes
// nil slices so array columns never receive NULL.
func prepareForInsert(t *models.Task, now time.Time) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.AssignedTo == nil {
		t.AssignedTo = []string{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
}
