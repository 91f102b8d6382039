package driven

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// Parser is the document parsing collaborator for one family of formats.
type Parser interface {
	// Name identifies the parser in logs.
	Name() string

	// SupportedMIMETypes returns the MIME types this parser handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns file extensions (with dot) used when the
	// MIME type is missing or generic.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific parsers should return 50-89.
	// Fallback parsers should return 1-9.
	Priority() int

	// Parse extracts plain text and layout boundaries.
	// Malformed input fails with *domain.ParseError.
	Parse(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error)
}
