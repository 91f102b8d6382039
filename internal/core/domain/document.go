package domain

import (
	"fmt"
	"time"
)

// DocumentStatus is the lifecycle state of a registered document.
type DocumentStatus string

// Document lifecycle states.
const (
	// StatusPending means the document is registered but ingestion has not started.
	StatusPending DocumentStatus = "pending"

	// StatusIngesting means an ingestion job is running for the document.
	StatusIngesting DocumentStatus = "ingesting"

	// StatusReady means every chunk is stored and the document is searchable.
	StatusReady DocumentStatus = "ready"

	// StatusFailed means ingestion exhausted its retries or hit a fatal error.
	StatusFailed DocumentStatus = "failed"

	// StatusDeleted means the document was removed. Deletion is soft; the
	// registry row remains so repeated deletes stay idempotent.
	StatusDeleted DocumentStatus = "deleted"
)

// transitions lists the states reachable from each state.
var transitions = map[DocumentStatus][]DocumentStatus{
	StatusPending:   {StatusIngesting, StatusFailed, StatusDeleted},
	StatusIngesting: {StatusReady, StatusFailed, StatusDeleted},
	StatusReady:     {StatusPending, StatusFailed, StatusDeleted},
	StatusFailed:    {StatusPending, StatusDeleted},
	StatusDeleted:   nil,
}

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Staying in the same state is always allowed.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsLive returns true if chunks may reference a document in this state.
func (s DocumentStatus) IsLive() bool {
	return s.IsValid() && s != StatusDeleted
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// AllDocumentStatuses returns every status in lifecycle order.
func AllDocumentStatuses() []DocumentStatus {
	return []DocumentStatus{StatusPending, StatusIngesting, StatusReady, StatusFailed, StatusDeleted}
}

// Document is a registered upload tracked by the source registry.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// DisplayName is the human-readable name, usually the uploaded file name.
	DisplayName string

	// MIMEType is the declared content type of the upload.
	MIMEType string

	// Status is the lifecycle state.
	Status DocumentStatus

	// ChunkCount equals the number of live chunks once Status is Ready.
	ChunkCount int

	// LastError is the human-readable reason for a Failed status.
	LastError string

	// CreatedAt is when the document was registered.
	CreatedAt time.Time

	// UpdatedAt is when the document last changed state.
	UpdatedAt time.Time
}

// Transition moves the document to next, recording the time.
// It returns ErrInvalidTransition if the lifecycle forbids the move.
func (d *Document) Transition(next DocumentStatus, now time.Time) error {
	if !d.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, next)
	}
	d.Status = next
	d.UpdatedAt = now
	return nil
}

// TokenSpan is the half-open token range [Start, End) a chunk covers
// within the parsed document text.
type TokenSpan struct {
	Start int
	End   int
}

// Len returns the number of tokens in the span.
func (s TokenSpan) Len() int {
	return s.End - s.Start
}

// Chunk is a bounded span of a document's text, embedded and stored
// independently. Chunks are immutable once stored.
type Chunk struct {
	// ID is derived from (DocumentID, SequenceIndex) so re-storing the
	// same chunk overwrites rather than duplicates.
	ID string

	// DocumentID references the owning Document.
	DocumentID string

	// SequenceIndex is the 0-based position of the chunk in the document.
	SequenceIndex int

	// Text is the chunk content.
	Text string

	// Embedding is the vector representation; nil until the Embed step.
	Embedding []float32

	// Span is the token range of Text within the parsed document.
	Span TokenSpan
}

// Metadata returns the typed record written alongside the vector.
func (c Chunk) Metadata(displayName string) ChunkMetadata {
	return ChunkMetadata{
		DocumentID:    c.DocumentID,
		DocumentName:  displayName,
		SequenceIndex: c.SequenceIndex,
		Text:          c.Text,
		TokenStart:    c.Span.Start,
		TokenEnd:      c.Span.End,
	}
}

// ChunkMetadata is the fixed record stored with each vector in the chunk
// store. Adapters must round-trip every field.
type ChunkMetadata struct {
	DocumentID    string `json:"document_id"`
	DocumentName  string `json:"document_name"`
	SequenceIndex int    `json:"sequence_index"`
	Text          string `json:"text"`
	TokenStart    int    `json:"token_start"`
	TokenEnd      int    `json:"token_end"`
}

// RawDocument is an uploaded file before parsing.
type RawDocument struct {
	// Name is the original file name.
	Name string

	// MIMEType is the declared content type. May be empty.
	MIMEType string

	// Content is the raw file bytes.
	Content []byte
}

// ParsedDocument is the output of the Parse step.
type ParsedDocument struct {
	// Text is the extracted plain text.
	Text string

	// Boundaries are byte offsets into Text where layout units
	// (pages, sections) begin. The first boundary is always 0.
	Boundaries []int
}
