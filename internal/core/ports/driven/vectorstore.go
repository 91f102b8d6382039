package driven

import (
	"context"
	"sort"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// VectorStore is the Chunk Store Adapter: a thin contract over a
// vector-search collaborator. Records are keyed by chunk ID, so upserting
// the same ID twice overwrites rather than duplicates.
//
// Failures caused by the collaborator being unreachable are reported as
// *domain.StoreError.
type VectorStore interface {
	// Upsert inserts or replaces records. Every vector must have the
	// store's dimension, otherwise domain.ErrDimensionMismatch is returned.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Delete removes every record matching the filter. Deleting nothing is
	// not an error.
	Delete(ctx context.Context, filter VectorFilter) error

	// Search returns up to k records ranked by descending cosine similarity.
	Search(ctx context.Context, query []float32, k int, opts SearchOptions) ([]VectorHit, error)

	// Scroll returns every record matching the filter, vectors included,
	// ordered by document ID then sequence index.
	Scroll(ctx context.Context, filter VectorFilter) ([]VectorRecord, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter VectorFilter) (int, error)

	// CountByDocument returns the number of records per document ID.
	CountByDocument(ctx context.Context) (map[string]int, error)

	// Dimensions returns the fixed vector length of the store.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// VectorRecord is one stored chunk: its ID, vector and typed metadata.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata domain.ChunkMetadata
}

// VectorFilter restricts an operation to a subset of records.
// The zero value matches everything.
type VectorFilter struct {
	// DocumentIDs limits matches to these documents when non-empty.
	DocumentIDs []string

	// FromSequence limits matches to chunks with SequenceIndex >= FromSequence.
	FromSequence int
}

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// Filter restricts the candidate set.
	Filter VectorFilter

	// ScoreThreshold drops hits scoring below it when set.
	ScoreThreshold *float64
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched chunk.
	ID string

	// Score is the cosine similarity (-1..1).
	Score float64

	// Metadata is the record stored alongside the vector.
	Metadata domain.ChunkMetadata
}

// Matches reports whether the metadata satisfies the filter.
func (f VectorFilter) Matches(meta domain.ChunkMetadata) bool {
	if meta.SequenceIndex < f.FromSequence {
		return false
	}
	if len(f.DocumentIDs) == 0 {
		return true
	}
	for _, id := range f.DocumentIDs {
		if id == meta.DocumentID {
			return true
		}
	}
	return false
}

// SortHits orders hits by descending score, breaking ties by ascending
// document ID then sequence index, so equal scores rank deterministically.
func SortHits(hits []VectorHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Metadata.DocumentID != b.Metadata.DocumentID {
			return a.Metadata.DocumentID < b.Metadata.DocumentID
		}
		return a.Metadata.SequenceIndex < b.Metadata.SequenceIndex
	})
}
