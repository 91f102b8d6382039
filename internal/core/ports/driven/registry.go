package driven

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// ParserRegistry selects the appropriate parser for a document.
// It maintains a priority-ordered list of parsers and dispatches
// based on MIME type, then file extension.
type ParserRegistry interface {
	// Parse extracts text using the best matching parser.
	// Returns domain.ErrUnsupportedType wrapped in a *domain.ParseError
	// when no parser accepts the document.
	Parse(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error)

	// Register adds a parser to the registry.
	Register(parser Parser)

	// SupportedMIMETypes returns all MIME types that can be parsed.
	SupportedMIMETypes() []string
}
