package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

var docLog = logger.With("documents")

// DocumentService manages the document lifecycle outside ingestion: listing,
// deletion and the consistency pass between registry and chunk store.
type DocumentService struct {
	registry driven.DocumentRegistry
	jobs     driven.JobStore
	vectors  driven.VectorStore
	ingest   *IngestionService
}

// NewDocumentService creates a document service. Deletes and reconcile
// fixes take the same per-document lock as ingestion jobs.
func NewDocumentService(
	registry driven.DocumentRegistry,
	jobs driven.JobStore,
	vectors driven.VectorStore,
	ingest *IngestionService,
) *DocumentService {
	return &DocumentService{
		registry: registry,
		jobs:     jobs,
		vectors:  vectors,
		ingest:   ingest,
	}
}

// List returns every registered document, oldest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.registry.List(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	return s.registry.Get(ctx, documentID)
}

// Delete cancels any ingestion of the document, removes its chunks and marks
// it Deleted. The registry is only updated once the store holds no chunks
// for the document.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.Get(ctx, documentID); err != nil {
		return err
	}

	unlock, err := s.ingest.lockDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("lock document %s: %w", documentID, err)
	}
	defer unlock()

	doc, err := s.registry.Get(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.cancelQueuedJob(ctx, documentID); err != nil {
		return err
	}

	filter := driven.VectorFilter{DocumentIDs: []string{documentID}}
	if err := s.vectors.Delete(ctx, filter); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	remaining, err := s.vectors.Count(ctx, filter)
	if err != nil {
		return fmt.Errorf("count chunks of %s: %w", documentID, err)
	}
	if remaining != 0 {
		return &domain.ConsistencyError{DocumentID: documentID, Expected: 0, Actual: remaining}
	}

	if doc.Status == domain.StatusDeleted {
		return nil
	}
	if err := doc.Transition(domain.StatusDeleted, s.ingest.now()); err != nil {
		return err
	}
	doc.ChunkCount = 0
	if err := s.registry.Save(ctx, doc); err != nil {
		return fmt.Errorf("save document %s: %w", documentID, err)
	}

	docLog.Info("deleted document %s (%s)", documentID, doc.DisplayName)
	return nil
}

// cancelQueuedJob marks the document's latest unfinished job cancelled so a
// later Resume does not pick it up.
func (s *DocumentService) cancelQueuedJob(ctx context.Context, documentID string) error {
	job, err := s.jobs.LatestForDocument(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load job for %s: %w", documentID, err)
	}
	if job.IsTerminal() {
		return nil
	}

	job.State = domain.JobCancelled
	job.CancelRequested = true
	job.LastError = domain.ErrDocumentDeleted.Error()
	job.Content = nil
	job.Chunks = nil
	job.UpdatedAt = s.ingest.now()
	if err := s.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("cancel job %s: %w", job.ID, err)
	}
	docLog.Debug("cancelled job %s of deleted document %s", job.ID, documentID)
	return nil
}

// Reconcile compares the registry against the chunk store and repairs
// divergence:
//   - chunks owned by unknown or deleted documents are removed
//   - chunks of Failed documents are removed
//   - a Ready document whose chunk_count differs from the store takes the
//     stored count, or is marked Failed when the store holds none
//
// Documents locked by a running job are skipped.
func (s *DocumentService) Reconcile(ctx context.Context) (*driving.ReconcileReport, error) {
	docs, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	counts, err := s.vectors.CountByDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	report := &driving.ReconcileReport{Checked: len(docs)}
	known := make(map[string]bool, len(docs))
	var errs []error

	for i := range docs {
		known[docs[i].ID] = true
		fixed, orphaned, err := s.reconcileDocument(ctx, docs[i].ID, counts[docs[i].ID])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if fixed != nil {
			report.Fixed = append(report.Fixed, *fixed)
		}
		if orphaned {
			report.OrphansRemoved = append(report.OrphansRemoved, docs[i].ID)
		}
	}

	var unknown []string
	for id := range counts {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		if err := s.vectors.Delete(ctx, driven.VectorFilter{DocumentIDs: []string{id}}); err != nil {
			errs = append(errs, fmt.Errorf("remove orphaned chunks of %s: %w", id, err))
			continue
		}
		docLog.Warn("removed %d orphaned chunks of unknown document %s", counts[id], id)
		report.OrphansRemoved = append(report.OrphansRemoved, id)
	}

	docLog.Info("reconcile: checked %d documents, fixed %d, removed orphans of %d",
		report.Checked, len(report.Fixed), len(report.OrphansRemoved))
	return report, errors.Join(errs...)
}

// reconcileDocument repairs one document. stored is the chunk count seen
// before the lock was taken and is re-read under it. orphaned reports that
// chunks of a deleted document were removed.
func (s *DocumentService) reconcileDocument(
	ctx context.Context, documentID string, stored int,
) (fix *domain.ConsistencyError, orphaned bool, err error) {
	unlock, ok := s.ingest.locks.TryLock(documentID)
	if !ok {
		docLog.Debug("reconcile: document %s is being ingested, skipped", documentID)
		return nil, false, nil
	}
	defer unlock()

	doc, err := s.registry.Get(ctx, documentID)
	if err != nil {
		return nil, false, fmt.Errorf("load document %s: %w", documentID, err)
	}
	filter := driven.VectorFilter{DocumentIDs: []string{documentID}}
	if stored > 0 || doc.Status == domain.StatusReady {
		if stored, err = s.vectors.Count(ctx, filter); err != nil {
			return nil, false, fmt.Errorf("count chunks of %s: %w", documentID, err)
		}
	}

	switch doc.Status {
	case domain.StatusDeleted, domain.StatusFailed:
		if stored == 0 {
			return nil, false, nil
		}
		if err := s.vectors.Delete(ctx, filter); err != nil {
			return nil, false, fmt.Errorf("remove chunks of %s document %s: %w", doc.Status, documentID, err)
		}
		docLog.Warn("removed %d chunks of %s document %s", stored, doc.Status, documentID)
		if doc.Status == domain.StatusDeleted {
			return nil, true, nil
		}
		return &domain.ConsistencyError{DocumentID: documentID, Expected: 0, Actual: stored}, false, nil

	case domain.StatusReady:
		if stored == doc.ChunkCount {
			return nil, false, nil
		}
		fix = &domain.ConsistencyError{DocumentID: documentID, Expected: doc.ChunkCount, Actual: stored}
		if stored == 0 {
			if err := doc.Transition(domain.StatusFailed, s.ingest.now()); err != nil {
				return nil, false, err
			}
			doc.LastError = "chunks missing from store"
		}
		doc.ChunkCount = stored
		if err := s.registry.Save(ctx, doc); err != nil {
			return nil, false, fmt.Errorf("save document %s: %w", documentID, err)
		}
		docLog.Warn("reconcile: %v; registry updated", fix)
		return fix, false, nil

	default:
		// Pending and Ingesting documents belong to a job that will
		// overwrite their chunks.
		return nil, false, nil
	}
}
