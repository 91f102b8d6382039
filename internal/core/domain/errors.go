package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a forbidden document status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnsupportedType indicates no parser accepts the document's MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDimensionMismatch indicates an embedding whose length differs from
	// the deployment's configured dimension. This is a configuration error.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIngestionInProgress indicates a job is already running for the document.
	ErrIngestionInProgress = errors.New("ingestion in progress")

	// ErrDocumentDeleted indicates the document was deleted and cannot be re-ingested.
	ErrDocumentDeleted = errors.New("document deleted")

	// ErrJobCancelled indicates an ingestion job was cancelled between steps.
	ErrJobCancelled = errors.New("job cancelled")

	// ErrStaleProjection indicates a session basis fit over a corpus that
	// has since changed. Visualize refits it.
	ErrStaleProjection = errors.New("projection basis is stale")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the chunk store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrGenerationUnavailable indicates answer generation failed after
	// exhausting retries. It is distinct from finding no relevant context.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExhausted indicates the provider quota is spent. Not retryable.
	ErrQuotaExhausted = errors.New("quota exhausted")
)

// ParseError reports malformed input that the document parser rejected.
// It is never retryable.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Reason, e.Err)
	}
	return "parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ProviderError reports a failure from the embedding or generation provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// GenerationError reports a failure from the answer generation collaborator.
type GenerationError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation (%s): %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StoreError reports the vector search collaborator being unavailable.
// Always retryable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ConsistencyError reports divergence between the registry and the chunk store.
type ConsistencyError struct {
	DocumentID string
	Expected   int
	Actual     int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: document %s expected %d chunks, store has %d",
		e.DocumentID, e.Expected, e.Actual)
}

// IsRetryable reports whether err is a transient failure worth retrying.
// Unknown errors are treated as retryable; context cancellation is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrJobCancelled) || errors.Is(err, ErrQuotaExhausted) ||
		errors.Is(err, ErrDimensionMismatch) || errors.Is(err, ErrDocumentDeleted) ||
		errors.Is(err, ErrUnsupportedType) || errors.Is(err, context.Canceled) {
		return false
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return false
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Retryable
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return true
	}
	return true
}
