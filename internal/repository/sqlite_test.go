package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedeskhq/homedesk/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTask() *models.Task {
	due := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	projectID := uuid.New()
	return &models.Task{
		Title:             "Clean the gutters",
		Description:       "Front and back",
		Status:            models.TaskStatusActive,
		Priority:          models.PriorityHigh,
		AssignedTo:        []string{"jo", "sam"},
		Tags:              []string{"outdoors", "spring"},
		ProjectID:         &projectID,
		DueDate:           &due,
		IsRecurring:       true,
		RecurrencePattern: models.RawPattern(`{"type":"yearly","interval":1,"monthOfYear":4}`),
	}
}

func TestSQLiteCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := sampleTask()
	require.NoError(t, store.Create(ctx, task))
	require.NotEqual(t, uuid.Nil, task.ID)
	require.False(t, task.CreatedAt.IsZero())

	got, err := store.GetByID(ctx, task.ID)
	require.NoError(t, err)

	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, task.Description, got.Description)
	assert.Equal(t, task.Status, got.Status)
	assert.Equal(t, task.Priority, got.Priority)
	assert.Equal(t, []string{"jo", "sam"}, []string(got.AssignedTo))
	assert.Equal(t, []string{"outdoors", "spring"}, []string(got.Tags))
	require.NotNil(t, got.ProjectID)
	assert.Equal(t, *task.ProjectID, *got.ProjectID)
	require.NotNil(t, got.DueDate)
	assert.True(t, task.DueDate.Equal(*got.DueDate))
	assert.True(t, got.IsRecurring)
	assert.JSONEq(t, string(task.RecurrencePattern), string(got.RecurrencePattern))
	assert.Nil(t, got.ParentTaskID)
	assert.Nil(t, got.CompletedAt)
}

func TestSQLiteGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListActiveRecurring(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	recurring := sampleTask()
	require.NoError(t, store.Create(ctx, recurring))

	completed := sampleTask()
	completed.Status = models.TaskStatusCompleted
	require.NoError(t, store.Create(ctx, completed))

	oneOff := sampleTask()
	oneOff.IsRecurring = false
	oneOff.RecurrencePattern = nil
	require.NoError(t, store.Create(ctx, oneOff))

	tasks, err := store.ListActiveRecurring(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, recurring.ID, tasks[0].ID)
}

func TestSQLiteHasFutureInstance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	parent := sampleTask()
	require.NoError(t, store.Create(ctx, parent))

	cutoff := time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)

	has, err := store.HasFutureInstance(ctx, parent.ID, cutoff)
	require.NoError(t, err)
	assert.False(t, has)

	past := cutoff.AddDate(0, 0, -1)
	inst := &models.Task{
		Title:        parent.Title,
		Status:       models.TaskStatusActive,
		DueDate:      &past,
		ParentTaskID: &parent.ID,
	}
	require.NoError(t, store.Create(ctx, inst))

	has, err = store.HasFutureInstance(ctx, parent.ID, cutoff)
	require.NoError(t, err)
	assert.False(t, has, "an instance before the cutoff does not count")

	onCutoff := &models.Task{
		Title:        parent.Title,
		Status:       models.TaskStatusActive,
		DueDate:      &cutoff,
		ParentTaskID: &parent.ID,
	}
	require.NoError(t, store.Create(ctx, onCutoff))

	has, err = store.HasFutureInstance(ctx, parent.ID, cutoff)
	require.NoError(t, err)
	assert.True(t, has, "an instance due exactly at the cutoff counts")

	// Other parents are unaffected.
	has, err = store.HasFutureInstance(ctx, uuid.New(), cutoff)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSQLiteCreateBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	parent := sampleTask()
	require.NoError(t, store.Create(ctx, parent))

	var batch []*models.Task
	for i := 1; i <= 3; i++ {
		due := time.Date(2025, time.April, i, 9, 0, 0, 0, time.UTC)
		batch = append(batch, &models.Task{
			Title:        parent.Title,
			Status:       models.TaskStatusActive,
			DueDate:      &due,
			ParentTaskID: &parent.ID,
		})
	}

	created, err := store.CreateBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, created, 3)

	for _, c := range created {
		require.NotEqual(t, uuid.Nil, c.ID)
		got, err := store.GetByID(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ParentTaskID)
		assert.Equal(t, parent.ID, *got.ParentTaskID)
	}
}

func TestSQLiteMarkCompleted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := sampleTask()
	require.NoError(t, store.Create(ctx, task))

	at := time.Date(2025, time.April, 2, 18, 30, 0, 0, time.UTC)
	require.NoError(t, store.MarkCompleted(ctx, task.ID, at))

	got, err := store.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, at.Equal(*got.CompletedAt))
	assert.True(t, at.Equal(got.UpdatedAt))

	assert.ErrorIs(t, store.MarkCompleted(ctx, uuid.New(), at), ErrNotFound)
}

func TestSQLiteDeleteDetachesInstances(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	parent := sampleTask()
	require.NoError(t, store.Create(ctx, parent))

	due := time.Date(2025, time.April, 5, 9, 0, 0, 0, time.UTC)
	inst := &models.Task{
		Title:        parent.Title,
		Status:       models.TaskStatusActive,
		DueDate:      &due,
		ParentTaskID: &parent.ID,
	}
	require.NoError(t, store.Create(ctx, inst))

	require.NoError(t, store.Delete(ctx, parent.ID))

	_, err := store.GetByID(ctx, parent.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	orphan, err := store.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.ParentTaskID)

	assert.ErrorIs(t, store.Delete(ctx, parent.ID), ErrNotFound)
}
