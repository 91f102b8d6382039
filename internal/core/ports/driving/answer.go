package driving

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// AnswerService answers questions from ingested content.
type AnswerService interface {
	// Answer embeds the question, retrieves up to topK chunks from Ready
	// documents and generates a grounded answer. topK <= 0 uses the
	// configured default. An empty retrieval returns
	// domain.NoRelevantContextAnswer without calling the generator.
	Answer(ctx context.Context, query string, topK int) (*domain.QueryContext, error)
}
