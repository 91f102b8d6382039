package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
// Jobs are copied on the way in and out so callers never share state.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.IngestionJob
	seq  map[string]int
	next int
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]domain.IngestionJob),
		seq:  make(map[string]int),
	}
}

// Save stores or updates a job.
func (s *JobStore) Save(_ context.Context, job *domain.IngestionJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("%w: job id required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seq[job.ID]; !ok {
		s.next++
		s.seq[job.ID] = s.next
	}
	s.jobs[job.ID] = cloneJob(*job)
	return nil
}

// Get retrieves a job by ID.
func (s *JobStore) Get(_ context.Context, id string) (*domain.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := cloneJob(job)
	return &clone, nil
}

// LatestForDocument returns the most recently created job for a document.
func (s *JobStore) LatestForDocument(_ context.Context, documentID string) (*domain.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.IngestionJob
	latestSeq := 0
	for id := range s.jobs {
		job := s.jobs[id]
		if job.DocumentID != documentID {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) ||
			(job.CreatedAt.Equal(latest.CreatedAt) && s.seq[id] > latestSeq) {
			latest = &job
			latestSeq = s.seq[id]
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	clone := cloneJob(*latest)
	return &clone, nil
}

// ListIncomplete returns jobs that are not in a terminal state, oldest first.
func (s *JobStore) ListIncomplete(_ context.Context) ([]domain.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.IngestionJob
	for id := range s.jobs {
		if !s.jobs[id].State.IsTerminal() {
			result = append(result, cloneJob(s.jobs[id]))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return s.seq[result[i].ID] < s.seq[result[j].ID]
	})
	return result, nil
}

func cloneJob(job domain.IngestionJob) domain.IngestionJob {
	attempts := make(map[domain.Step]int, len(job.Attempts))
	for k, v := range job.Attempts {
		attempts[k] = v
	}
	job.Attempts = attempts

	if job.Content != nil {
		job.Content = append([]byte(nil), job.Content...)
	}
	if job.Chunks != nil {
		chunks := make([]domain.Chunk, len(job.Chunks))
		for i, c := range job.Chunks {
			if c.Embedding != nil {
				c.Embedding = append([]float32(nil), c.Embedding...)
			}
			chunks[i] = c
		}
		job.Chunks = chunks
	}
	return job
}
