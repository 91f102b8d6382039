package driven

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// JobStore persists ingestion job state so a restarted process can resume
// each job at its first incomplete step.
type JobStore interface {
	// Save stores or updates a job, including its intermediate step output.
	Save(ctx context.Context, job *domain.IngestionJob) error

	// Get retrieves a job by ID. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, id string) (*domain.IngestionJob, error)

	// LatestForDocument returns the most recently created job for a document.
	LatestForDocument(ctx context.Context, documentID string) (*domain.IngestionJob, error)

	// ListIncomplete returns jobs that are not in a terminal state.
	ListIncomplete(ctx context.Context) ([]domain.IngestionJob, error)
}
