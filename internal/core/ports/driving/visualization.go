package driving

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// VisualizationService projects the stored corpus and live queries into 3D.
// The projection basis is cached per session and refit only when the
// corpus changes.
type VisualizationService interface {
	// Visualize returns every Ready chunk as a 3D point, plus the query
	// point when queryText is non-empty.
	Visualize(ctx context.Context, sessionID, queryText string) (*domain.Visualization, error)

	// ProjectQuery projects an embedding with the session's cached basis.
	// It fails with domain.ErrStaleProjection once the corpus has changed.
	ProjectQuery(ctx context.Context, sessionID string, embedding []float32) (domain.Point3, error)

	// EndSession drops the session's cached basis.
	EndSession(sessionID string)
}
