// Package qdrant provides a driven.VectorStore backed by a Qdrant server,
// spoken to over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

var log = logger.With("qdrant")

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second
	scrollPageSize = 256
)

// Payload keys indexed for filtering.
const (
	fieldDocumentID    = "document_id"
	fieldSequenceIndex = "sequence_index"
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant REST endpoint, e.g. http://localhost:6333.
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name.
	Collection string

	// Dimensions is the vector size of the collection.
	Dimensions int

	// Timeout is the request timeout.
	Timeout time.Duration
}

// Store is a Qdrant-backed chunk store.
type Store struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	dimensions int
}

// New creates a store and ensures the collection exists with the configured
// vector size and cosine distance.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant: url is required")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("qdrant: invalid url: %w", err)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: dimensions must be positive")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ==================== Wire types ====================

type point struct {
	ID      string                `json:"id"`
	Vector  []float32             `json:"vector,omitempty"`
	Payload *domain.ChunkMetadata `json:"payload,omitempty"`
}

type scoredPoint struct {
	ID      any                  `json:"id"`
	Score   float64              `json:"score"`
	Vector  []float32            `json:"vector,omitempty"`
	Payload domain.ChunkMetadata `json:"payload"`
}

type filter struct {
	Must []condition `json:"must,omitempty"`
}

type condition struct {
	Key   string      `json:"key"`
	Match *matchAny   `json:"match,omitempty"`
	Range *rangeValue `json:"range,omitempty"`
}

type matchAny struct {
	Any []string `json:"any"`
}

type rangeValue struct {
	Gte int `json:"gte"`
}

type response[T any] struct {
	Result T       `json:"result"`
	Status any     `json:"status"`
	Time   float64 `json:"time"`
}

type collectionInfo struct {
	Config struct {
		Params struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

type scrollResult struct {
	Points         []scoredPoint `json:"points"`
	NextPageOffset any           `json:"next_page_offset"`
}

type countResult struct {
	Count int `json:"count"`
}

// ==================== Collection ====================

func (s *Store) ensureCollection(ctx context.Context) error {
	var info response[collectionInfo]
	status, err := s.do(ctx, "collection", http.MethodGet, s.collectionPath(""), nil, &info)
	if err == nil {
		size := info.Result.Config.Params.Vectors.Size
		if size != 0 && size != s.dimensions {
			return fmt.Errorf("%w: collection %s has size %d, configured %d",
				domain.ErrDimensionMismatch, s.collection, size, s.dimensions)
		}
		return nil
	}
	if status != http.StatusNotFound {
		return err
	}

	log.Info("creating collection %s (size %d)", s.collection, s.dimensions)
	create := map[string]any{
		"vectors": map[string]any{"size": s.dimensions, "distance": "Cosine"},
	}
	if _, err := s.do(ctx, "collection", http.MethodPut, s.collectionPath(""), create, nil); err != nil {
		return err
	}

	indexes := []struct{ field, schema string }{
		{fieldDocumentID, "keyword"},
		{fieldSequenceIndex, "integer"},
	}
	for _, idx := range indexes {
		body := map[string]any{"field_name": idx.field, "field_schema": idx.schema}
		if _, err := s.do(ctx, "collection", http.MethodPut, s.collectionPath("/index?wait=true"), body, nil); err != nil {
			return err
		}
	}
	return nil
}

// ==================== VectorStore ====================

// Upsert writes points and waits for them to be applied.
func (s *Store) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]point, len(records))
	for i, rec := range records {
		if len(rec.Vector) != s.dimensions {
			return fmt.Errorf("%w: chunk %s has %d, collection expects %d",
				domain.ErrDimensionMismatch, rec.ID, len(rec.Vector), s.dimensions)
		}
		meta := rec.Metadata
		points[i] = point{ID: rec.ID, Vector: rec.Vector, Payload: &meta}
	}

	body := map[string]any{"points": points}
	_, err := s.do(ctx, "upsert", http.MethodPut, s.collectionPath("/points?wait=true"), body, nil)
	return err
}

// Delete removes every point matching the filter.
func (s *Store) Delete(ctx context.Context, f driven.VectorFilter) error {
	body := map[string]any{"filter": toFilter(f)}
	_, err := s.do(ctx, "delete", http.MethodPost, s.collectionPath("/points/delete?wait=true"), body, nil)
	return err
}

// Search returns the k nearest points, re-sorted for deterministic ties.
func (s *Store) Search(
	ctx context.Context,
	query []float32,
	k int,
	opts driven.SearchOptions,
) ([]driven.VectorHit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d, collection expects %d",
			domain.ErrDimensionMismatch, len(query), s.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	body := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	if f := toFilter(opts.Filter); len(f.Must) > 0 {
		body["filter"] = f
	}
	if opts.ScoreThreshold != nil {
		body["score_threshold"] = *opts.ScoreThreshold
	}

	var resp response[[]scoredPoint]
	if _, err := s.do(ctx, "search", http.MethodPost, s.collectionPath("/points/search"), body, &resp); err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, len(resp.Result))
	for i, p := range resp.Result {
		hits[i] = driven.VectorHit{ID: idString(p.ID), Score: p.Score, Metadata: p.Payload}
	}
	driven.SortHits(hits)
	return hits, nil
}

// Scroll pages through every matching point, vectors included.
func (s *Store) Scroll(ctx context.Context, f driven.VectorFilter) ([]driven.VectorRecord, error) {
	points, err := s.scroll(ctx, f, true)
	if err != nil {
		return nil, err
	}

	records := make([]driven.VectorRecord, len(points))
	for i, p := range points {
		records[i] = driven.VectorRecord{ID: idString(p.ID), Vector: p.Vector, Metadata: p.Payload}
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].Metadata, records[j].Metadata
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.SequenceIndex < b.SequenceIndex
	})
	return records, nil
}

// Count returns the exact number of matching points.
func (s *Store) Count(ctx context.Context, f driven.VectorFilter) (int, error) {
	body := map[string]any{"exact": true}
	if qf := toFilter(f); len(qf.Must) > 0 {
		body["filter"] = qf
	}

	var resp response[countResult]
	if _, err := s.do(ctx, "count", http.MethodPost, s.collectionPath("/points/count"), body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// CountByDocument scrolls payloads and groups them by document.
func (s *Store) CountByDocument(ctx context.Context) (map[string]int, error) {
	points, err := s.scroll(ctx, driven.VectorFilter{}, false)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, p := range points {
		counts[p.Payload.DocumentID]++
	}
	return counts, nil
}

// Dimensions returns the collection vector size.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Store) scroll(ctx context.Context, f driven.VectorFilter, withVector bool) ([]scoredPoint, error) {
	var all []scoredPoint
	var offset any

	for {
		body := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  withVector,
		}
		if qf := toFilter(f); len(qf.Must) > 0 {
			body["filter"] = qf
		}
		if offset != nil {
			body["offset"] = offset
		}

		var resp response[scrollResult]
		if _, err := s.do(ctx, "scroll", http.MethodPost, s.collectionPath("/points/scroll"), body, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Result.Points...)

		if resp.Result.NextPageOffset == nil {
			return all, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// ==================== HTTP ====================

func (s *Store) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

// do sends a JSON request and decodes the response into out when non-nil.
// Every failure is reported as *domain.StoreError; the HTTP status is
// returned so callers can react to 404.
func (s *Store) do(ctx context.Context, op, method, path string, in, out any) (int, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("qdrant %s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("qdrant %s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, &domain.StoreError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &domain.StoreError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		return resp.StatusCode, &domain.StoreError{
			Op:  op,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, &domain.StoreError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return resp.StatusCode, nil
}

// toFilter maps a VectorFilter onto Qdrant's must conditions.
func toFilter(f driven.VectorFilter) filter {
	var qf filter
	if len(f.DocumentIDs) > 0 {
		qf.Must = append(qf.Must, condition{Key: fieldDocumentID, Match: &matchAny{Any: f.DocumentIDs}})
	}
	if f.FromSequence > 0 {
		qf.Must = append(qf.Must, condition{Key: fieldSequenceIndex, Range: &rangeValue{Gte: f.FromSequence}})
	}
	return qf
}

// idString renders a point ID, which Qdrant returns as a UUID string or an
// unsigned integer.
func idString(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
