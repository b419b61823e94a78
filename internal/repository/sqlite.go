package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/homedeskhq/homedesk/internal/models"
)

// SQLiteSchema backs local development and tests. Arrays are stored as
// JSON text; timestamps as fixed-width UTC strings so date comparisons in
// SQL stay correct.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'active',
	priority           TEXT NOT NULL DEFAULT 'medium',
	assigned_to        TEXT NOT NULL DEFAULT '[]',
	project_id         TEXT,
	tags               TEXT NOT NULL DEFAULT '[]',
	due_date           TEXT,
	is_recurring       INTEGER NOT NULL DEFAULT 0,
	recurrence_pattern TEXT,
	parent_task_id     TEXT,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	completed_at       TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_recurring ON tasks (is_recurring, status);
CREATE INDEX IF NOT EXISTS idx_tasks_parent_due ON tasks (parent_task_id, due_date);
`

// sqliteTimeLayout keeps a fixed width so lexicographic ordering matches
// chronological ordering for UTC values.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists tasks in a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at path and ensures
// the tasks table exists. Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(ctx context.Context, t *models.Task) error {
	prepareForInsert(t, time.Now().UTC())
	return s.insert(ctx, s.db, t)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStore) insert(ctx context.Context, ex execer, t *models.Task) error {
	assignedTo, _ := json.Marshal([]string(t.AssignedTo))
	tags, _ := json.Marshal([]string(t.Tags))

	_, err := ex.ExecContext(ctx, `
		INSERT INTO tasks
			(id, title, description, status, priority, assigned_to, project_id,
			 tags, due_date, is_recurring, recurrence_pattern, parent_task_id,
			 created_at, updated_at, completed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID.String(), t.Title, t.Description, t.Status, t.Priority,
		string(assignedTo), nullUUID(t.ProjectID),
		string(tags), nullTime(t.DueDate), t.IsRecurring,
		nullPattern(t.RecurrencePattern), nullUUID(t.ParentTaskID),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), nullTime(t.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *SQLiteStore) ListActiveRecurring(ctx context.Context) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_recurring AND status = ?
		ORDER BY created_at`, models.TaskStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) HasFutureInstance(ctx context.Context, parentID uuid.UUID, after time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM tasks WHERE parent_task_id = ? AND due_date >= ?`,
		parentID.String(), formatTime(after)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check future instance: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) CreateBatch(ctx context.Context, tasks []*models.Task) ([]*models.Task, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	now := time.Now().UTC()
	for _, t := range tasks {
		prepareForInsert(t, now)
		if err := s.insert(ctx, tx, t); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("insert task %q: %w", t.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return tasks, nil
}

func (s *SQLiteStore) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		models.TaskStatusCompleted, formatTime(at), formatTime(at), id.String())
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

func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	// Keep generated instances; only detach them from the deleted parent.
	if _, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET parent_task_id = NULL WHERE parent_task_id = ?`, id.String()); err != nil {
		return fmt.Errorf("detach instances: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var id, assignedTo, tags, createdAt, updatedAt string
	var projectID, parentTaskID, dueDate, completedAt, pattern sql.NullString

	err := row.Scan(&id, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assignedTo, &projectID, &tags, &dueDate, &t.IsRecurring,
		&pattern, &parentTaskID, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse task id: %w", err)
	}
	if t.ProjectID, err = parseNullUUID(projectID); err != nil {
		return nil, fmt.Errorf("parse project id: %w", err)
	}
	if t.ParentTaskID, err = parseNullUUID(parentTaskID); err != nil {
		return nil, fmt.Errorf("parse parent id: %w", err)
	}

	var assigned, tagList []string
	if err := json.Unmarshal([]byte(assignedTo), &assigned); err != nil {
		return nil, fmt.Errorf("decode assigned_to: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &tagList); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	t.AssignedTo = assigned
	t.Tags = tagList

	if pattern.Valid {
		t.RecurrencePattern = models.RawPattern(pattern.String)
	}

	if t.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if t.DueDate, err = parseNullTime(dueDate); err != nil {
		return nil, fmt.Errorf("parse due_date: %w", err)
	}
	if t.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullPattern(p models.RawPattern) interface{} {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(sqliteTimeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
