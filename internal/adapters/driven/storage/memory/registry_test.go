package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

func TestDocumentRegistry_SaveAndGet(t *testing.T) {
	reg := NewDocumentRegistry()
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	doc := &domain.Document{ID: "doc-1", DisplayName: "a.txt", Status: domain.StatusPending, CreatedAt: created}
	require.NoError(t, reg.Save(ctx, doc))

	// Mutating the caller's copy does not leak into the store.
	doc.Status = domain.StatusReady
	got, err := reg.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	// Updates keep the original creation time.
	require.NoError(t, reg.Save(ctx, &domain.Document{ID: "doc-1", Status: domain.StatusIngesting}))
	got, err = reg.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, domain.StatusIngesting, got.Status)
}

func TestDocumentRegistry_Errors(t *testing.T) {
	reg := NewDocumentRegistry()

	_, err := reg.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, reg.Save(context.Background(), nil), domain.ErrInvalidInput)
}

func TestDocumentRegistry_ListByStatusOrdered(t *testing.T) {
	reg := NewDocumentRegistry()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, reg.Save(ctx, &domain.Document{ID: "c", Status: domain.StatusReady, CreatedAt: base.Add(2 * time.Second)}))
	require.NoError(t, reg.Save(ctx, &domain.Document{ID: "a", Status: domain.StatusReady, CreatedAt: base}))
	require.NoError(t, reg.Save(ctx, &domain.Document{ID: "b", Status: domain.StatusDeleted, CreatedAt: base.Add(time.Second)}))

	ready, err := reg.ListByStatus(ctx, domain.StatusReady)
	require.NoError(t, err)
	require.Len(t, ready, 2)
	assert.Equal(t, "a", ready[0].ID)
	assert.Equal(t, "c", ready[1].ID)

	all, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
