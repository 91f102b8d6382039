package driven

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// DocumentRegistry is the Source Registry: it tracks which documents exist,
// their status and chunk counts. Deletion is a status change, never a row
// removal.
type DocumentRegistry interface {
	// Save stores or updates a document.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns every registered document, oldest first.
	List(ctx context.Context) ([]domain.Document, error)

	// ListByStatus returns documents in any of the given states, oldest first.
	ListByStatus(ctx context.Context, statuses ...domain.DocumentStatus) ([]domain.Document, error)
}
