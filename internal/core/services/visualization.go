package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
)

// Ensure VisualizationService implements the interface.
var _ driving.VisualizationService = (*VisualizationService)(nil)

var vizLog = logger.With("visualize")

// QueryPointID is the point ID used for the live query in a visualization.
const QueryPointID = "query"

// projectionSession holds one session's cached basis.
type projectionSession struct {
	mu    sync.Mutex
	basis *domain.ProjectionBasis
}

// VisualizationService projects Ready chunks and queries into 3D. Each
// session keeps the basis it last fit and reuses it until the set of Ready
// documents changes.
type VisualizationService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	registry driven.DocumentRegistry

	sessions *expirable.LRU[string, *projectionSession]
	mu       sync.Mutex
}

// NewVisualizationService creates the projection service. Sessions idle for
// longer than SessionTTL, or beyond MaxSessions, are evicted.
func NewVisualizationService(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	registry driven.DocumentRegistry,
	settings domain.VisualizationSettings,
) *VisualizationService {
	size := settings.MaxSessions
	if size <= 0 {
		size = domain.DefaultAppSettings().Visualization.MaxSessions
	}
	ttl := settings.SessionTTL
	if ttl <= 0 {
		ttl = domain.DefaultAppSettings().Visualization.SessionTTL
	}
	return &VisualizationService{
		embedder: embedder,
		vectors:  vectors,
		registry: registry,
		sessions: expirable.NewLRU[string, *projectionSession](size, nil, ttl),
	}
}

// Visualize projects every chunk of every Ready document, plus the query
// when queryText is non-empty. An empty sessionID starts a new session.
func (s *VisualizationService) Visualize(ctx context.Context, sessionID, queryText string) (*domain.Visualization, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ready, err := s.registry.ListByStatus(ctx, domain.StatusReady)
	if err != nil {
		return nil, fmt.Errorf("list ready documents: %w", err)
	}
	version := corpusVersion(ready)

	var records []driven.VectorRecord
	if len(ready) > 0 {
		ids := make([]string, len(ready))
		for i, d := range ready {
			ids[i] = d.ID
		}
		records, err = s.vectors.Scroll(ctx, driven.VectorFilter{DocumentIDs: ids})
		if err != nil {
			return nil, fmt.Errorf("load chunk vectors: %w", err)
		}
	}

	vectors := make([][]float32, len(records))
	for i, r := range records {
		vectors[i] = r.Vector
	}

	basis, err := s.basisFor(sessionID, version, vectors)
	if err != nil {
		return nil, err
	}
	coords, err := Project(basis, vectors)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(ready))
	for _, d := range ready {
		names[d.ID] = d.DisplayName
	}

	viz := &domain.Visualization{
		SessionID: sessionID,
		Version:   version,
		Variance:  basis.Variance,
		Points:    make([]domain.ProjectedPoint, 0, len(records)+1),
	}
	for i, r := range records {
		viz.Points = append(viz.Points, domain.ProjectedPoint{
			ID:         r.ID,
			Kind:       domain.PointKindChunk,
			DocumentID: r.Metadata.DocumentID,
			Group:      names[r.Metadata.DocumentID],
			Label:      domain.PreviewLabel(r.Metadata.Text),
			Point:      coords[i],
		})
	}

	if q := strings.TrimSpace(queryText); q != "" {
		embedding, err := s.embedder.Embed(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		p, err := ProjectQuery(basis, embedding)
		if err != nil {
			return nil, err
		}
		viz.Points = append(viz.Points, domain.ProjectedPoint{
			ID:    QueryPointID,
			Kind:  domain.PointKindQuery,
			Group: string(domain.PointKindQuery),
			Label: domain.PreviewLabel(q),
			Point: p,
		})
	}

	vizLog.Debug("session %s: %d points at version %s", sessionID, len(viz.Points), shortVersion(version))
	return viz, nil
}

// ProjectQuery projects an embedding with the session's current basis.
// The basis is never refit here; if the corpus moved since the fit it
// returns ErrStaleProjection.
func (s *VisualizationService) ProjectQuery(ctx context.Context, sessionID string, embedding []float32) (domain.Point3, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Point3{}, fmt.Errorf("%w: session %q", domain.ErrNotFound, sessionID)
	}
	sess.mu.Lock()
	basis := sess.basis
	sess.mu.Unlock()
	if basis == nil {
		return domain.Point3{}, fmt.Errorf("%w: session %q has no basis", domain.ErrNotFound, sessionID)
	}

	ready, err := s.registry.ListByStatus(ctx, domain.StatusReady)
	if err != nil {
		return domain.Point3{}, fmt.Errorf("list ready documents: %w", err)
	}
	if v := corpusVersion(ready); v != basis.Version {
		return domain.Point3{}, fmt.Errorf("%w: session %q fit at %s, corpus now %s",
			domain.ErrStaleProjection, sessionID, shortVersion(basis.Version), shortVersion(v))
	}
	return ProjectQuery(basis, embedding)
}

// EndSession drops the session's cached basis.
func (s *VisualizationService) EndSession(sessionID string) {
	s.sessions.Remove(sessionID)
}

// basisFor returns the session's basis, refitting when the corpus version
// moved since it was fit.
func (s *VisualizationService) basisFor(sessionID, version string, vectors [][]float32) (*domain.ProjectionBasis, error) {
	s.mu.Lock()
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		sess = &projectionSession{}
		s.sessions.Add(sessionID, sess)
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.basis != nil && sess.basis.Version == version {
		return sess.basis, nil
	}

	start := time.Now()
	basis, err := FitBasis(vectors, version)
	if err != nil {
		return nil, fmt.Errorf("fit projection: %w", err)
	}
	sess.basis = basis
	vizLog.Info("session %s: fit basis over %d vectors in %s", sessionID, len(vectors), time.Since(start))
	return basis, nil
}

// corpusVersion identifies the set of Ready documents and their contents.
func corpusVersion(docs []domain.Document) string {
	keys := make([]string, len(docs))
	for i, d := range docs {
		keys[i] = fmt.Sprintf("%s:%d:%d", d.ID, d.ChunkCount, d.UpdatedAt.UnixNano())
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}
