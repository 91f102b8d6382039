package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/vecmath"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore with
// brute-force cosine search.
type VectorStore struct {
	mu         sync.RWMutex
	dimensions int
	records    map[string]driven.VectorRecord
}

// NewVectorStore creates an empty store for vectors of the given dimension.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		dimensions: dimensions,
		records:    make(map[string]driven.VectorRecord),
	}
}

// Upsert inserts or replaces records by ID.
func (s *VectorStore) Upsert(_ context.Context, records []driven.VectorRecord) error {
	for _, rec := range records {
		if len(rec.Vector) != s.dimensions {
			return fmt.Errorf("%w: chunk %s has %d, store expects %d",
				domain.ErrDimensionMismatch, rec.ID, len(rec.Vector), s.dimensions)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		rec.Vector = append([]float32(nil), rec.Vector...)
		s.records[rec.ID] = rec
	}
	return nil
}

// Delete removes every record matching the filter.
func (s *VectorStore) Delete(_ context.Context, filter driven.VectorFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.records {
		if filter.Matches(rec.Metadata) {
			delete(s.records, id)
		}
	}
	return nil
}

// Search ranks matching records by cosine similarity to query.
func (s *VectorStore) Search(
	_ context.Context,
	query []float32,
	k int,
	opts driven.SearchOptions,
) ([]driven.VectorHit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d, store expects %d",
			domain.ErrDimensionMismatch, len(query), s.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(s.records))
	for _, rec := range s.records {
		if !opts.Filter.Matches(rec.Metadata) {
			continue
		}
		score := vecmath.Cosine(query, rec.Vector)
		if opts.ScoreThreshold != nil && score < *opts.ScoreThreshold {
			continue
		}
		hits = append(hits, driven.VectorHit{ID: rec.ID, Score: score, Metadata: rec.Metadata})
	}
	s.mu.RUnlock()

	driven.SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Scroll returns every matching record ordered by document then sequence.
func (s *VectorStore) Scroll(_ context.Context, filter driven.VectorFilter) ([]driven.VectorRecord, error) {
	s.mu.RLock()
	var result []driven.VectorRecord
	for _, rec := range s.records {
		if filter.Matches(rec.Metadata) {
			rec.Vector = append([]float32(nil), rec.Vector...)
			result = append(result, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Metadata, result[j].Metadata
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.SequenceIndex < b.SequenceIndex
	})
	return result, nil
}

// Count returns the number of matching records.
func (s *VectorStore) Count(_ context.Context, filter driven.VectorFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		if filter.Matches(rec.Metadata) {
			n++
		}
	}
	return n, nil
}

// CountByDocument returns record counts grouped by document.
func (s *VectorStore) CountByDocument(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, rec := range s.records {
		counts[rec.Metadata.DocumentID]++
	}
	return counts, nil
}

// Dimensions returns the fixed vector length.
func (s *VectorStore) Dimensions() int {
	return s.dimensions
}

// Close is a no-op for memory store.
func (s *VectorStore) Close() error {
	return nil
}
