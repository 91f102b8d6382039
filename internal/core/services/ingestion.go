package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

var ingestLog = logger.With("ingest")

// cleanupTimeout bounds removal of partial chunks after a failed job.
const cleanupTimeout = 30 * time.Second

// waitPollInterval is how often Wait checks jobs not run by this process.
const waitPollInterval = 250 * time.Millisecond

// IngestionService runs the parse -> chunk -> embed -> store pipeline as
// background jobs.
//
// The job record is saved before and after every step, so a restarted
// process resumes at the first unfinished step. Every step body is safe to
// run twice: chunk IDs are derived from (document, sequence) and the store
// step overwrites by ID.
type IngestionService struct {
	parser   driven.ParserRegistry
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	registry driven.DocumentRegistry
	jobs     driven.JobStore

	settings domain.IngestionSettings
	policy   RetryPolicy
	limiter  *rate.Limiter
	locks    *keyedMutex
	slots    chan struct{}
	now      func() time.Time

	// ctx is cancelled on hard stop and aborts in-flight collaborator calls.
	ctx    context.Context
	cancel context.CancelFunc

	// stopping is closed by Shutdown; runners stop at the next boundary.
	stopping chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	running map[string]*runningJob
}

type runningJob struct {
	documentID string
	cancel     atomic.Bool
	done       chan struct{}
}

// NewIngestionService creates the ingestion pipeline. embedder.Dimensions()
// must equal vectors.Dimensions().
func NewIngestionService(
	parser driven.ParserRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	registry driven.DocumentRegistry,
	jobs driven.JobStore,
	settings domain.IngestionSettings,
) (*IngestionService, error) {
	if embedder.Dimensions() != vectors.Dimensions() {
		return nil, fmt.Errorf("%w: embedding model %s produces %d dimensions, store expects %d",
			domain.ErrDimensionMismatch, embedder.ModelName(), embedder.Dimensions(), vectors.Dimensions())
	}

	burst := settings.EmbedConcurrency
	if burst < 1 {
		burst = 1
	}
	maxJobs := settings.MaxJobs
	if maxJobs < 1 {
		maxJobs = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &IngestionService{
		parser:   parser,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		registry: registry,
		jobs:     jobs,
		settings: settings,
		policy:   NewRetryPolicy(settings),
		limiter:  rate.NewLimiter(rate.Limit(settings.EmbedRPS), burst),
		locks:    newKeyedMutex(),
		slots:    make(chan struct{}, maxJobs),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		stopping: make(chan struct{}),
		running:  make(map[string]*runningJob),
	}, nil
}

// Ingest registers the document and schedules its job.
func (s *IngestionService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestionJob, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: document content is empty", domain.ErrInvalidInput)
	}
	if s.isStopping() {
		return nil, errors.New("ingestion service is shutting down")
	}

	docID := req.DocumentID
	if docID == "" {
		docID = uuid.NewString()
	}

	// Registration holds the document lock so it cannot interleave with a
	// delete of the same document.
	unlock, ok := s.locks.TryLock(docID)
	if !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrIngestionInProgress, docID)
	}
	defer unlock()

	if s.activeFor(docID) {
		return nil, fmt.Errorf("%w: document %s", domain.ErrIngestionInProgress, docID)
	}

	now := s.now()
	doc, err := s.registry.Get(ctx, docID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		doc = &domain.Document{
			ID:          docID,
			DisplayName: req.DisplayName,
			MIMEType:    req.MIMEType,
			Status:      domain.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	case err != nil:
		return nil, fmt.Errorf("get document: %w", err)
	case doc.Status == domain.StatusDeleted:
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentDeleted, docID)
	case doc.Status == domain.StatusPending || doc.Status == domain.StatusIngesting:
		return nil, fmt.Errorf("%w: document %s is %s", domain.ErrIngestionInProgress, docID, doc.Status)
	default:
		if err := doc.Transition(domain.StatusPending, now); err != nil {
			return nil, err
		}
		if req.DisplayName != "" {
			doc.DisplayName = req.DisplayName
		}
		doc.MIMEType = req.MIMEType
		doc.LastError = ""
	}
	if doc.DisplayName == "" {
		doc.DisplayName = docID
	}

	job := domain.NewIngestionJob(uuid.NewString(), docID, req.MIMEType, req.Content, now)
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	if err := s.registry.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	ingestLog.Info("queued job %s for document %s (%s, %d bytes)", job.ID, docID, doc.DisplayName, len(req.Content))
	s.schedule(job.ID, docID)
	return job, nil
}

// JobStatus returns the job and its document.
func (s *IngestionService) JobStatus(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	doc, err := s.registry.Get(ctx, job.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", job.DocumentID, err)
	}
	job.Content = nil
	return &domain.JobStatus{Job: *job, Document: *doc}, nil
}

// Wait blocks until the job is terminal or ctx is done.
func (s *IngestionService) Wait(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		status, err := s.JobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if status.Job.IsTerminal() {
			return status, nil
		}

		s.mu.Lock()
		rj := s.running[jobID]
		s.mu.Unlock()

		var done <-chan struct{}
		if rj != nil {
			done = rj.done
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-done:
		case <-ticker.C:
		}
	}
}

// Cancel requests cancellation. A running job stops at its next step
// boundary; a job that is not running is cancelled immediately.
func (s *IngestionService) Cancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	rj := s.running[jobID]
	s.mu.Unlock()
	if rj != nil {
		rj.cancel.Store(true)
		ingestLog.Info("cancellation requested for job %s", jobID)
		return nil
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job %s: %w", jobID, err)
	}
	if job.IsTerminal() {
		return nil
	}

	unlock, err := s.locks.Lock(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	defer unlock()

	// Re-read under the lock; the job may have been scheduled meanwhile.
	if s.activeJob(jobID) {
		return s.Cancel(ctx, jobID)
	}
	job, err = s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return nil
	}
	doc, err := s.registry.Get(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	s.finishCancelled(job, doc)
	return nil
}

// Resume schedules every persisted job that has not finished and is not
// already running here.
func (s *IngestionService) Resume(ctx context.Context) (int, error) {
	jobs, err := s.jobs.ListIncomplete(ctx)
	if err != nil {
		return 0, fmt.Errorf("list incomplete jobs: %w", err)
	}

	resumed := 0
	for i := range jobs {
		job := jobs[i]
		if s.activeJob(job.ID) {
			continue
		}
		ingestLog.Info("resuming job %s for document %s at step %s", job.ID, job.DocumentID, job.CurrentStep)
		s.schedule(job.ID, job.DocumentID)
		resumed++
	}
	return resumed, nil
}

// Shutdown stops accepting jobs and waits for running jobs to reach a step
// boundary. If ctx ends first, in-flight calls are aborted; the interrupted
// steps run again on Resume.
func (s *IngestionService) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopping) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *IngestionService) isStopping() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

func (s *IngestionService) activeFor(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rj := range s.running {
		if rj.documentID == documentID {
			return true
		}
	}
	return false
}

func (s *IngestionService) activeJob(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[jobID]
	return ok
}

// lockDocument cancels running jobs for the document, waits for them to stop
// and returns the document lock.
func (s *IngestionService) lockDocument(ctx context.Context, documentID string) (func(), error) {
	for _, done := range s.cancelFor(documentID) {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.locks.Lock(ctx, documentID)
}

// cancelFor requests cancellation of any running job for the document and
// returns channels closed when those jobs exit.
func (s *IngestionService) cancelFor(documentID string) []<-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	var waits []<-chan struct{}
	for _, rj := range s.running {
		if rj.documentID == documentID {
			rj.cancel.Store(true)
			waits = append(waits, rj.done)
		}
	}
	return waits
}

func (s *IngestionService) schedule(jobID, documentID string) {
	rj := &runningJob{documentID: documentID, done: make(chan struct{})}

	s.mu.Lock()
	s.running[jobID] = rj
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, jobID)
			s.mu.Unlock()
			close(rj.done)
		}()
		s.run(jobID, rj)
	}()
}

// run drives one job to a terminal state or a shutdown boundary.
//
//nolint:gocyclo // State machine with persistence between every step
func (s *IngestionService) run(jobID string, rj *runningJob) {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-s.stopping:
		return
	}

	unlock, err := s.locks.Lock(s.ctx, rj.documentID)
	if err != nil {
		return
	}
	defer unlock()

	ctx := s.ctx
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		ingestLog.Error("load job %s: %v", jobID, err)
		return
	}
	if job.IsTerminal() {
		return
	}
	doc, err := s.registry.Get(ctx, job.DocumentID)
	if err != nil {
		ingestLog.Error("load document %s for job %s: %v", job.DocumentID, jobID, err)
		return
	}
	if doc.Status == domain.StatusDeleted {
		job.State = domain.JobCancelled
		job.LastError = domain.ErrDocumentDeleted.Error()
		s.saveJob(job)
		return
	}

	if doc.Status == domain.StatusReady || doc.Status == domain.StatusFailed {
		// A crash between the registry and job writes can leave the
		// document ahead of its job; re-enter through Pending.
		_ = doc.Transition(domain.StatusPending, s.now())
	}
	if doc.Status != domain.StatusIngesting {
		if err := doc.Transition(domain.StatusIngesting, s.now()); err != nil {
			s.finishFailed(job, doc, err)
			return
		}
		if err := s.registry.Save(ctx, doc); err != nil {
			ingestLog.Error("save document %s: %v", doc.ID, err)
			return
		}
	}
	job.State = domain.JobRunning
	if !s.saveJob(job) {
		return
	}

	for job.CurrentStep != domain.StepDone {
		if rj.cancel.Load() || job.CancelRequested {
			job.CancelRequested = true
			s.finishCancelled(job, doc)
			return
		}
		if s.isStopping() {
			job.State = domain.JobQueued
			s.saveJob(job)
			ingestLog.Info("job %s paused at step %s for shutdown", job.ID, job.CurrentStep)
			return
		}

		step := job.CurrentStep
		attempt := job.RecordAttempt(s.now())
		if !s.saveJob(job) {
			return
		}

		ingestLog.Debug("job %s: %s attempt %d", job.ID, step, attempt)
		stepCtx, cancel := context.WithTimeout(ctx, s.settings.StepTimeout)
		err := s.execute(stepCtx, job, doc)
		cancel()

		if err == nil {
			job.Advance(s.now())
			if job.CurrentStep == domain.StepDone {
				job.Chunks = nil
			}
			if !s.saveJob(job) {
				return
			}
			ingestLog.Info("job %s: %s complete", job.ID, step)
			continue
		}

		if ctx.Err() != nil {
			// Hard stop mid-step: leave the job resumable.
			job.State = domain.JobQueued
			job.LastError = err.Error()
			s.saveJob(job)
			return
		}

		job.LastError = fmt.Sprintf("%s: %v", step, err)
		if !s.policy.ShouldRetry(attempt, err) {
			s.finishFailed(job, doc, err)
			return
		}

		delay := s.policy.Backoff(attempt)
		ingestLog.Warn("job %s: %s attempt %d failed, retrying in %s: %v", job.ID, step, attempt, delay, err)
		if !s.saveJob(job) {
			return
		}
		select {
		case <-time.After(delay):
		case <-s.stopping:
		case <-ctx.Done():
		}
	}

	ingestLog.Info("job %s done: document %s ready with %d chunks", job.ID, doc.ID, doc.ChunkCount)
}

// execute runs the body of job.CurrentStep.
func (s *IngestionService) execute(ctx context.Context, job *domain.IngestionJob, doc *domain.Document) error {
	switch job.CurrentStep {
	case domain.StepParse:
		return s.parse(ctx, job, doc)
	case domain.StepChunk:
		return s.chunk(ctx, job)
	case domain.StepEmbed:
		return s.embed(ctx, job)
	case domain.StepStore:
		return s.store(ctx, job, doc)
	default:
		return fmt.Errorf("unknown step %q", job.CurrentStep)
	}
}

func (s *IngestionService) parse(ctx context.Context, job *domain.IngestionJob, doc *domain.Document) error {
	parsed, err := s.parser.Parse(ctx, &domain.RawDocument{
		Name:     doc.DisplayName,
		MIMEType: job.MIMEType,
		Content:  job.Content,
	})
	if err != nil {
		return err
	}
	job.ParsedText = parsed.Text
	job.Content = nil
	return nil
}

func (s *IngestionService) chunk(ctx context.Context, job *domain.IngestionJob) error {
	chunks, err := s.chunker.Chunk(ctx, job.DocumentID, &domain.ParsedDocument{
		Text:       job.ParsedText,
		Boundaries: []int{0},
	})
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return &domain.ParseError{Reason: "no text extracted"}
	}
	for i, c := range chunks {
		if c.SequenceIndex != i || c.DocumentID != job.DocumentID {
			return fmt.Errorf("chunker %s returned chunk %d out of order", s.chunker.Name(), i)
		}
	}
	job.Chunks = chunks
	return nil
}

// embed fills every chunk's embedding. Batches run concurrently, bounded by
// EmbedConcurrency and the shared rate limiter. Each batch writes its
// vectors back by sequence index as soon as it returns, so a retry only
// embeds the chunks still missing one.
func (s *IngestionService) embed(ctx context.Context, job *domain.IngestionJob) error {
	batchSize := s.settings.EmbedBatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	dims := s.embedder.Dimensions()

	var pending []int
	for i := range job.Chunks {
		if len(job.Chunks[i].Embedding) != dims {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.settings.EmbedConcurrency))

	for start := 0; start < len(pending); start += batchSize {
		batch := pending[start:min(start+batchSize, len(pending))]
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}
			texts := make([]string, len(batch))
			for i, idx := range batch {
				texts[i] = job.Chunks[idx].Text
			}
			out, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(out) != len(batch) {
				return fmt.Errorf("embedding provider returned %d vectors for %d texts", len(out), len(batch))
			}
			for i := range out {
				if len(out[i]) != dims {
					return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(out[i]), dims)
				}
			}
			// Batches cover disjoint indices.
			for i, idx := range batch {
				job.Chunks[idx].Embedding = out[i]
			}
			return nil
		})
	}
	return g.Wait()
}

// store upserts every chunk, removes chunks left over from a longer earlier
// version, confirms the count and only then marks the document Ready.
func (s *IngestionService) store(ctx context.Context, job *domain.IngestionJob, doc *domain.Document) error {
	records := make([]driven.VectorRecord, len(job.Chunks))
	for i, c := range job.Chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %d has no embedding", c.SequenceIndex)
		}
		records[i] = driven.VectorRecord{
			ID:       c.ID,
			Vector:   c.Embedding,
			Metadata: c.Metadata(doc.DisplayName),
		}
	}

	if err := s.vectors.Upsert(ctx, records); err != nil {
		return err
	}
	n := len(records)
	stale := driven.VectorFilter{DocumentIDs: []string{doc.ID}, FromSequence: n}
	if err := s.vectors.Delete(ctx, stale); err != nil {
		return err
	}

	stored, err := s.vectors.Count(ctx, driven.VectorFilter{DocumentIDs: []string{doc.ID}})
	if err != nil {
		return err
	}
	if stored != n {
		return &domain.ConsistencyError{DocumentID: doc.ID, Expected: n, Actual: stored}
	}

	next := *doc
	if err := next.Transition(domain.StatusReady, s.now()); err != nil {
		return err
	}
	next.ChunkCount = n
	next.LastError = ""
	if err := s.registry.Save(ctx, &next); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	*doc = next
	return nil
}

func (s *IngestionService) finishFailed(job *domain.IngestionJob, doc *domain.Document, cause error) {
	ingestLog.Error("job %s failed at %s after %d attempts: %v",
		job.ID, job.CurrentStep, job.Attempts[job.CurrentStep], cause)

	job.Fail(fmt.Sprintf("%s: %v", job.CurrentStep, cause), s.now())
	s.finish(job, doc, job.LastError)
}

func (s *IngestionService) finishCancelled(job *domain.IngestionJob, doc *domain.Document) {
	ingestLog.Info("job %s cancelled at step %s", job.ID, job.CurrentStep)

	job.State = domain.JobCancelled
	job.CancelRequested = true
	job.LastError = domain.ErrJobCancelled.Error()
	job.UpdatedAt = s.now()
	s.finish(job, doc, "ingestion cancelled")
}

// finish removes any chunks the job may have written, marks the document
// Failed and persists both records, the job last so a waiter sees the
// final document state. It runs on a fresh context so a hard stop does not
// leave partial chunks behind.
func (s *IngestionService) finish(job *domain.IngestionJob, doc *domain.Document, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := s.vectors.Delete(ctx, driven.VectorFilter{DocumentIDs: []string{doc.ID}}); err != nil {
		// Reconcile removes chunks of non-Ready documents.
		ingestLog.Error("cleanup of document %s chunks failed: %v", doc.ID, err)
	} else {
		ingestLog.Debug("removed partial chunks of document %s", doc.ID)
	}

	if doc.Status != domain.StatusDeleted {
		if err := doc.Transition(domain.StatusFailed, s.now()); err != nil {
			ingestLog.Error("document %s: %v", doc.ID, err)
		} else {
			doc.ChunkCount = 0
			doc.LastError = reason
			if err := s.registry.Save(ctx, doc); err != nil {
				ingestLog.Error("save document %s: %v", doc.ID, err)
			}
		}
	}

	job.Content = nil
	job.Chunks = nil
	if err := s.jobs.Save(ctx, job); err != nil {
		ingestLog.Error("save job %s: %v", job.ID, err)
	}
}

// saveJob persists the job and reports success. A failed save stops the
// runner; the job resumes from its last saved step.
func (s *IngestionService) saveJob(job *domain.IngestionJob) bool {
	job.UpdatedAt = s.now()
	if err := s.jobs.Save(s.ctx, job); err != nil {
		ingestLog.Error("save job %s: %v", job.ID, err)
		return false
	}
	return true
}
