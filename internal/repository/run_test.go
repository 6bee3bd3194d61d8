//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/testutil"
)

func newRun(total int, createdAt time.Time) *domain.IngestionRun {
	return &domain.IngestionRun{
		ID:        uuid.NewString(),
		Status:    domain.RunStatusRunning,
		TotalDocs: total,
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
		UpdatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	run := newRun(4, time.Now())
	require.NoError(t, repo.Create(ctx, run))

	retrieved, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, retrieved.ID)
	assert.Equal(t, domain.RunStatusRunning, retrieved.Status)
	assert.Equal(t, 4, retrieved.TotalDocs)
	assert.Empty(t, retrieved.Error)
}

func TestRunRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunRepository_Finish(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	run := newRun(3, time.Now())
	require.NoError(t, repo.Create(ctx, run))

	run.Status = domain.RunStatusCompleted
	run.StoredDocs = 2
	run.FailedDocs = 1
	require.NoError(t, repo.Finish(ctx, run))

	retrieved, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, retrieved.Status)
	assert.Equal(t, 2, retrieved.StoredDocs)
	assert.Equal(t, 1, retrieved.FailedDocs)
}

func TestRunRepository_Finish_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	run := newRun(1, time.Now())
	run.Status = domain.RunStatusFailed
	assert.ErrorIs(t, repo.Finish(ctx, run), domain.ErrRunNotFound)
}

func TestRunRepository_DocumentResults(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	run := newRun(2, time.Now())
	require.NoError(t, repo.Create(ctx, run))

	started := time.Now().UTC().Truncate(time.Microsecond)
	stored := &domain.DocumentResult{
		DocumentID: "doc-1",
		Source:     "s3://docs/policy.pdf",
		State:      domain.StateStored,
		Pattern:    domain.PatternClauseBased,
		ChunkCount: 12,
		Warnings: []domain.Warning{
			{Code: domain.WarnHardCut, Message: "no sentence boundary under token ceiling", ChunkIndex: 4},
		},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	failed := &domain.DocumentResult{
		DocumentID: "doc-2",
		Source:     "s3://docs/broken.pdf",
		State:      domain.StateFailed,
		Error:      "extraction failed: malformed xref table",
		StartedAt:  started.Add(time.Second),
		FinishedAt: started.Add(2 * time.Second),
	}

	require.NoError(t, repo.AddDocumentResult(ctx, run.ID, stored))
	require.NoError(t, repo.AddDocumentResult(ctx, run.ID, failed))

	results, err := repo.ListDocuments(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc-1", results[0].DocumentID)
	assert.Equal(t, domain.StateStored, results[0].State)
	assert.Equal(t, domain.PatternClauseBased, results[0].Pattern)
	assert.Equal(t, 12, results[0].ChunkCount)
	require.Len(t, results[0].Warnings, 1)
	assert.Equal(t, domain.WarnHardCut, results[0].Warnings[0].Code)
	assert.Equal(t, 4, results[0].Warnings[0].ChunkIndex)

	assert.Equal(t, domain.StateFailed, results[1].State)
	assert.Equal(t, "extraction failed: malformed xref table", results[1].Error)
	assert.Empty(t, results[1].Warnings)
}

func TestRunRepository_AddDocumentResult_Overwrites(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	run := newRun(1, time.Now())
	require.NoError(t, repo.Create(ctx, run))

	started := time.Now().UTC().Truncate(time.Microsecond)
	result := &domain.DocumentResult{
		DocumentID: "doc-1",
		Source:     "file:///tmp/a.pdf",
		State:      domain.StateChunked,
		StartedAt:  started,
		FinishedAt: started,
	}
	require.NoError(t, repo.AddDocumentResult(ctx, run.ID, result))

	result.State = domain.StateStored
	result.ChunkCount = 7
	result.FinishedAt = started.Add(time.Second)
	require.NoError(t, repo.AddDocumentResult(ctx, run.ID, result))

	results, err := repo.ListDocuments(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.StateStored, results[0].State)
	assert.Equal(t, 7, results[0].ChunkCount)
}

func TestRunRepository_List_Pagination(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newRun(1, base.Add(time.Duration(i)*time.Second))))
	}

	page1, err := repo.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 2)
	assert.True(t, page1.HasMore)
	assert.True(t, page1.Items[0].CreatedAt.After(page1.Items[1].CreatedAt))

	page2, err := repo.List(ctx, page1.Cursor, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)
	for _, run := range page2.Items {
		assert.True(t, run.CreatedAt.Before(page1.Items[1].CreatedAt))
	}

	page3, err := repo.List(ctx, page2.Cursor, 2)
	require.NoError(t, err)
	assert.Len(t, page3.Items, 1)
	assert.False(t, page3.HasMore)
}
