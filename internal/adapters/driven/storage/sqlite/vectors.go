package sqlite

import (
	"context"
	"fmt"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/vecmath"
)

// vectorStore implements driven.VectorStore over the chunk_vectors table.
// Search is a brute-force cosine scan, adequate for a single-user corpus.
type vectorStore struct {
	store      *Store
	collection string
	dimensions int
}

var _ driven.VectorStore = (*vectorStore)(nil)

const vectorColumns = `id, document_id, document_name, sequence_index, text, token_start, token_end, embedding`

// Upsert inserts or replaces records in a single transaction.
func (v *vectorStore) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	for _, rec := range records {
		if len(rec.Vector) != v.dimensions {
			return fmt.Errorf("%w: chunk %s has %d, collection expects %d",
				domain.ErrDimensionMismatch, rec.ID, len(rec.Vector), v.dimensions)
		}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreError{Op: "upsert", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_vectors (collection, `+vectorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			document_id = excluded.document_id,
			document_name = excluded.document_name,
			sequence_index = excluded.sequence_index,
			text = excluded.text,
			token_start = excluded.token_start,
			token_end = excluded.token_end,
			embedding = excluded.embedding
	`)
	if err != nil {
		return &domain.StoreError{Op: "upsert", Err: err}
	}
	defer stmt.Close()

	for _, rec := range records {
		m := rec.Metadata
		if _, err := stmt.ExecContext(ctx, v.collection, rec.ID, m.DocumentID, m.DocumentName,
			m.SequenceIndex, m.Text, m.TokenStart, m.TokenEnd, float32SliceToBytes(rec.Vector)); err != nil {
			return &domain.StoreError{Op: "upsert", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreError{Op: "upsert", Err: err}
	}
	return nil
}

// Delete removes every record matching the filter.
func (v *vectorStore) Delete(ctx context.Context, filter driven.VectorFilter) error {
	where, args := v.where(filter)
	if _, err := v.store.db.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE `+where, args...); err != nil {
		return &domain.StoreError{Op: "delete", Err: err}
	}
	return nil
}

// Search ranks matching records by cosine similarity to query.
func (v *vectorStore) Search(
	ctx context.Context,
	query []float32,
	k int,
	opts driven.SearchOptions,
) ([]driven.VectorHit, error) {
	if len(query) != v.dimensions {
		return nil, fmt.Errorf("%w: query has %d, collection expects %d",
			domain.ErrDimensionMismatch, len(query), v.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	records, err := v.scan(ctx, "search", opts.Filter)
	if err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, len(records))
	for _, rec := range records {
		score := vecmath.Cosine(query, rec.Vector)
		if opts.ScoreThreshold != nil && score < *opts.ScoreThreshold {
			continue
		}
		hits = append(hits, driven.VectorHit{ID: rec.ID, Score: score, Metadata: rec.Metadata})
	}

	driven.SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Scroll returns every matching record ordered by document then sequence.
func (v *vectorStore) Scroll(ctx context.Context, filter driven.VectorFilter) ([]driven.VectorRecord, error) {
	return v.scan(ctx, "scroll", filter)
}

// Count returns the number of matching records.
func (v *vectorStore) Count(ctx context.Context, filter driven.VectorFilter) (int, error) {
	where, args := v.where(filter)
	var n int
	if err := v.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunk_vectors WHERE `+where, args...).Scan(&n); err != nil {
		return 0, &domain.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

// CountByDocument returns record counts grouped by document.
func (v *vectorStore) CountByDocument(ctx context.Context) (map[string]int, error) {
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT document_id, COUNT(*) FROM chunk_vectors
		WHERE collection = ?
		GROUP BY document_id
	`, v.collection)
	if err != nil {
		return nil, &domain.StoreError{Op: "count", Err: err}
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, &domain.StoreError{Op: "count", Err: err}
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "count", Err: err}
	}
	return counts, nil
}

// Dimensions returns the fixed vector length.
func (v *vectorStore) Dimensions() int {
	return v.dimensions
}

// Close is a no-op; the owning Store holds the connection.
func (v *vectorStore) Close() error {
	return nil
}

func (v *vectorStore) scan(ctx context.Context, op string, filter driven.VectorFilter) ([]driven.VectorRecord, error) {
	where, args := v.where(filter)
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT `+vectorColumns+` FROM chunk_vectors
		WHERE `+where+`
		ORDER BY document_id, sequence_index
	`, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	var records []driven.VectorRecord
	for rows.Next() {
		var rec driven.VectorRecord
		var blob []byte
		m := &rec.Metadata
		if err := rows.Scan(&rec.ID, &m.DocumentID, &m.DocumentName, &m.SequenceIndex,
			&m.Text, &m.TokenStart, &m.TokenEnd, &blob); err != nil {
			return nil, &domain.StoreError{Op: op, Err: err}
		}
		rec.Vector = bytesToFloat32Slice(blob)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: op, Err: err}
	}
	return records, nil
}

// where builds the WHERE clause for a filter scoped to the collection.
func (v *vectorStore) where(filter driven.VectorFilter) (string, []any) {
	clause := "collection = ?"
	args := []any{v.collection}

	if filter.FromSequence > 0 {
		clause += " AND sequence_index >= ?"
		args = append(args, filter.FromSequence)
	}
	if len(filter.DocumentIDs) > 0 {
		clause += " AND document_id IN (" + placeholders(len(filter.DocumentIDs)) + ")"
		for _, id := range filter.DocumentIDs {
			args = append(args, id)
		}
	}
	return clause, args
}
