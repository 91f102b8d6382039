package driving

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// IngestionService runs the durable parse -> chunk -> embed -> store pipeline.
type IngestionService interface {
	// Ingest registers the document and schedules an ingestion job.
	// It returns the job handle immediately; completion is observed via
	// JobStatus or Wait.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestionJob, error)

	// JobStatus returns the job and the current state of its document.
	JobStatus(ctx context.Context, jobID string) (*domain.JobStatus, error)

	// Wait blocks until the job reaches a terminal state or ctx is done.
	Wait(ctx context.Context, jobID string) (*domain.JobStatus, error)

	// Cancel requests cancellation. The job stops at the next step boundary.
	Cancel(ctx context.Context, jobID string) error

	// Resume reschedules every persisted job that has not finished.
	// Returns the number of jobs resumed.
	Resume(ctx context.Context) (int, error)

	// Shutdown stops accepting jobs and waits for running ones to reach a
	// step boundary.
	Shutdown(ctx context.Context) error
}

// IngestRequest describes one upload.
type IngestRequest struct {
	// DocumentID re-ingests an existing document when set. A new ID is
	// generated otherwise.
	DocumentID string

	// DisplayName is the human-readable name, usually the file name.
	DisplayName string

	// MIMEType is the declared content type. May be empty.
	MIMEType string

	// Content is the raw file bytes.
	Content []byte
}
