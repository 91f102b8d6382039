package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

func record(docID string, seq int, vec ...float32) driven.VectorRecord {
	return driven.VectorRecord{
		ID:     fmt.Sprintf("%s-%d", docID, seq),
		Vector: vec,
		Metadata: domain.ChunkMetadata{
			DocumentID:    docID,
			SequenceIndex: seq,
		},
	}
}

func TestVectorStore_Upsert(t *testing.T) {
	store := NewVectorStore(2)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []driven.VectorRecord{record("d", 0, 1, 0)}))
	require.NoError(t, store.Upsert(ctx, []driven.VectorRecord{record("d", 0, 0, 1)}))

	n, err := store.Count(ctx, driven.VectorFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := store.Scroll(ctx, driven.VectorFilter{})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, records[0].Vector)

	err = store.Upsert(ctx, []driven.VectorRecord{record("d", 1, 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorStore_SearchTieBreak(t *testing.T) {
	store := NewVectorStore(2)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []driven.VectorRecord{
		record("b", 1, 1, 0),
		record("b", 0, 1, 0),
		record("a", 4, 1, 0),
		record("a", 5, 0, 1),
	}))

	hits, err := store.Search(ctx, []float32{2, 0}, 3, driven.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a-4", hits[0].ID)
	assert.Equal(t, "b-0", hits[1].ID)
	assert.Equal(t, "b-1", hits[2].ID)

	hits, err = store.Search(ctx, []float32{1, 0}, 0, driven.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorStore_DeleteAndCounts(t *testing.T) {
	store := NewVectorStore(1)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []driven.VectorRecord{
		record("a", 0, 1), record("a", 1, 1), record("a", 2, 1), record("b", 0, 1),
	}))

	require.NoError(t, store.Delete(ctx, driven.VectorFilter{DocumentIDs: []string{"a"}, FromSequence: 2}))
	counts, err := store.CountByDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, counts)

	require.NoError(t, store.Delete(ctx, driven.VectorFilter{DocumentIDs: []string{"a"}}))
	n, err := store.Count(ctx, driven.VectorFilter{DocumentIDs: []string{"a"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}
