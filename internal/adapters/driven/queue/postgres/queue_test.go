package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgstore "github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// setupTestQueue connects to RAG_TEST_DATABASE_URL or skips the test
func setupTestQueue(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("RAG_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RAG_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgstore.Connect(ctx, pgstore.DefaultConfig(url))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema(ctx))
	_, err = db.ExecContext(ctx, `DELETE FROM rag_tasks`)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewQueue(db.DB)
}

func TestQueue_Lifecycle(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	task := domain.NewIndexDocumentTask("doc-1", "body")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "body", got.Text())

	empty, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, empty)

	require.NoError(t, q.Ack(ctx, task.ID))
	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
}

func TestQueue_NackAndFail(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	task := domain.NewDeleteDocumentTask("doc-2")
	task.MaxAttempts = 2
	require.NoError(t, q.Enqueue(ctx, task))

	_, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, task.ID, "flaky"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.True(t, stored.ScheduledFor.After(time.Now()))

	require.NoError(t, q.Fail(ctx, task.ID, "bad input"))
	stored, err = q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, "bad input", stored.Error)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.FailedCount)
}

func TestQueue_UnknownTask(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	_, err := q.GetTask(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(q.Ack(ctx, "missing"), domain.ErrNotFound))
}

func TestQueue_EnqueueRejectsNil(t *testing.T) {
	q := NewQueue(nil)
	assert.True(t, errors.Is(q.Enqueue(context.Background(), nil), domain.ErrInvalidInput))
}
