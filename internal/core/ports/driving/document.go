package driving

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// DocumentService manages registered documents and their consistency with
// the chunk store.
type DocumentService interface {
	// List returns all registered documents, including deleted ones.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Delete removes every chunk of the document from the chunk store, then
	// marks it Deleted. Deleting an already deleted document succeeds.
	Delete(ctx context.Context, documentID string) error

	// Reconcile re-derives chunk counts from the store and removes orphaned
	// or partial chunks.
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

// ReconcileReport summarises one consistency pass.
type ReconcileReport struct {
	// Checked is the number of registered documents examined.
	Checked int

	// Fixed lists divergences found and repaired.
	Fixed []domain.ConsistencyError

	// OrphansRemoved lists document IDs whose chunks were deleted because
	// no live document owns them.
	OrphansRemoved []string
}
