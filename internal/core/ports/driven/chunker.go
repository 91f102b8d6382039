package driven

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// Chunker splits parsed text into overlapping windows. Chunks come back in
// document order with SequenceIndex 0..n-1 and IDs derived from
// (documentID, SequenceIndex), so re-chunking the same text is repeatable.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk splits the parsed document. Embeddings are left nil.
	Chunk(ctx context.Context, documentID string, parsed *domain.ParsedDocument) ([]domain.Chunk, error)
}
