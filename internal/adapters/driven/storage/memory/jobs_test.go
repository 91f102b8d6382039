package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

func TestJobStore_SaveCopiesState(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := domain.NewIngestionJob("job-1", "doc-1", "text/plain", []byte("abc"), time.Now())
	job.Chunks = []domain.Chunk{{ID: "c0", Embedding: []float32{1}}}
	require.NoError(t, store.Save(ctx, job))

	job.Chunks[0].Embedding[0] = 9
	job.Attempts[domain.StepParse] = 5

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, float32(1), got.Chunks[0].Embedding[0])
	assert.Zero(t, got.Attempts[domain.StepParse])
}

func TestJobStore_LatestForDocument(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, domain.NewIngestionJob("job-1", "doc-1", "", nil, now)))
	require.NoError(t, store.Save(ctx, domain.NewIngestionJob("job-2", "doc-1", "", nil, now)))
	require.NoError(t, store.Save(ctx, domain.NewIngestionJob("job-3", "doc-2", "", nil, now.Add(time.Hour))))

	latest, err := store.LatestForDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "job-2", latest.ID)

	_, err = store.LatestForDocument(ctx, "doc-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobStore_ListIncomplete(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()
	now := time.Now()

	done := domain.NewIngestionJob("job-1", "doc-1", "", nil, now)
	done.State = domain.JobDone
	require.NoError(t, store.Save(ctx, done))
	require.NoError(t, store.Save(ctx, domain.NewIngestionJob("job-2", "doc-2", "", nil, now)))
	running := domain.NewIngestionJob("job-3", "doc-3", "", nil, now)
	running.State = domain.JobRunning
	require.NoError(t, store.Save(ctx, running))

	jobs, err := store.ListIncomplete(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-2", jobs[0].ID)
	assert.Equal(t, "job-3", jobs[1].ID)
}
