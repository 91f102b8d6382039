package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

const jobColumns = `id, document_id, current_step, state, attempts, last_error, cancel_requested,
	mime_type, content, parsed_text, chunks, created_at, updated_at`

// storedChunk is the JSON form of a chunk held in a job's intermediate state.
type storedChunk struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	SequenceIndex int       `json:"sequence_index"`
	Text          string    `json:"text"`
	Embedding     []float32 `json:"embedding,omitempty"`
	TokenStart    int       `json:"token_start"`
	TokenEnd      int       `json:"token_end"`
}

// Save stores or updates a job.
func (s *jobStore) Save(ctx context.Context, job *domain.IngestionJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("%w: job id required", domain.ErrInvalidInput)
	}

	attemptsJSON, err := json.Marshal(job.Attempts)
	if err != nil {
		return fmt.Errorf("marshalling attempts: %w", err)
	}

	chunks := make([]storedChunk, len(job.Chunks))
	for i, c := range job.Chunks {
		chunks[i] = storedChunk{
			ID:            c.ID,
			DocumentID:    c.DocumentID,
			SequenceIndex: c.SequenceIndex,
			Text:          c.Text,
			Embedding:     c.Embedding,
			TokenStart:    c.Span.Start,
			TokenEnd:      c.Span.End,
		}
	}
	chunksJSON, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshalling chunks: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_step = excluded.current_step,
			state = excluded.state,
			attempts = excluded.attempts,
			last_error = excluded.last_error,
			cancel_requested = excluded.cancel_requested,
			mime_type = excluded.mime_type,
			content = excluded.content,
			parsed_text = excluded.parsed_text,
			chunks = excluded.chunks,
			updated_at = excluded.updated_at
	`, job.ID, job.DocumentID, string(job.CurrentStep), string(job.State), string(attemptsJSON),
		job.LastError, job.CancelRequested, job.MIMEType, job.Content, job.ParsedText,
		string(chunksJSON), job.CreatedAt.UTC(), job.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (s *jobStore) Get(ctx context.Context, id string) (*domain.IngestionJob, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJobRow(row)
}

// LatestForDocument returns the most recently created job for a document.
func (s *jobStore) LatestForDocument(ctx context.Context, documentID string) (*domain.IngestionJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE document_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, documentID)
	return scanJobRow(row)
}

// ListIncomplete returns jobs that are not in a terminal state, oldest first.
func (s *jobStore) ListIncomplete(ctx context.Context) ([]domain.IngestionJob, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE state NOT IN (?, ?, ?)
		ORDER BY created_at, rowid
	`, string(domain.JobDone), string(domain.JobFailed), string(domain.JobCancelled))
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.IngestionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

func scanJobRow(row *sql.Row) (*domain.IngestionJob, error) {
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

func scanJob(row rowScanner) (*domain.IngestionJob, error) {
	var job domain.IngestionJob
	var step, state, attemptsJSON, chunksJSON string

	if err := row.Scan(&job.ID, &job.DocumentID, &step, &state, &attemptsJSON, &job.LastError,
		&job.CancelRequested, &job.MIMEType, &job.Content, &job.ParsedText, &chunksJSON,
		&job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}
	job.CurrentStep = domain.Step(step)
	job.State = domain.JobState(state)

	job.Attempts = make(map[domain.Step]int)
	if attemptsJSON != "" {
		if err := json.Unmarshal([]byte(attemptsJSON), &job.Attempts); err != nil {
			return nil, fmt.Errorf("unmarshalling attempts: %w", err)
		}
	}

	if chunksJSON != "" {
		var stored []storedChunk
		if err := json.Unmarshal([]byte(chunksJSON), &stored); err != nil {
			return nil, fmt.Errorf("unmarshalling chunks: %w", err)
		}
		if len(stored) > 0 {
			job.Chunks = make([]domain.Chunk, len(stored))
			for i, c := range stored {
				job.Chunks[i] = domain.Chunk{
					ID:            c.ID,
					DocumentID:    c.DocumentID,
					SequenceIndex: c.SequenceIndex,
					Text:          c.Text,
					Embedding:     c.Embedding,
					Span:          domain.TokenSpan{Start: c.TokenStart, End: c.TokenEnd},
				}
			}
		}
	}

	return &job, nil
}
