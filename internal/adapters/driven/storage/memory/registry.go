package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

// Ensure DocumentRegistry implements the interface.
var _ driven.DocumentRegistry = (*DocumentRegistry)(nil)

// DocumentRegistry is an in-memory implementation of driven.DocumentRegistry.
type DocumentRegistry struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
}

// NewDocumentRegistry creates a new in-memory document registry.
func NewDocumentRegistry() *DocumentRegistry {
	return &DocumentRegistry{
		documents: make(map[string]domain.Document),
	}
}

// Save stores or updates a document.
func (r *DocumentRegistry) Save(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.documents[doc.ID]; ok {
		stored := *doc
		stored.CreatedAt = existing.CreatedAt
		r.documents[doc.ID] = stored
		return nil
	}
	r.documents[doc.ID] = *doc
	return nil
}

// Get retrieves a document by ID.
func (r *DocumentRegistry) Get(_ context.Context, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// List returns every registered document, oldest first.
func (r *DocumentRegistry) List(ctx context.Context) ([]domain.Document, error) {
	return r.ListByStatus(ctx)
}

// ListByStatus returns documents in any of the given states, oldest first.
// With no statuses every document is returned.
func (r *DocumentRegistry) ListByStatus(
	_ context.Context,
	statuses ...domain.DocumentStatus,
) ([]domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Document
	for id := range r.documents {
		doc := r.documents[id]
		if len(statuses) == 0 || hasStatus(statuses, doc.Status) {
			result = append(result, doc)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func hasStatus(statuses []domain.DocumentStatus, s domain.DocumentStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
