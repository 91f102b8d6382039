// Package plaintext parses plain text and source files.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles plain text documents.
type Parser struct{}

// New creates a new plain text parser.
func New() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "plaintext"
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-go",
		"text/x-python",
		"text/x-rust",
		"text/x-java",
		"text/x-c",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/css",
		"application/json",
		"application/xml",
	}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".txt", ".text", ".log", ".csv", ".json", ".yaml", ".yml", ".toml", ".go", ".py", ".rs", ".java", ".c", ".js", ".ts"}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 5 // Fallback parser
}

// Parse returns the content as text. Paragraphs separated by blank lines
// become layout boundaries. Invalid UTF-8 is rejected as binary input.
func (p *Parser) Parse(_ context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, &domain.ParseError{Reason: "empty document", Err: domain.ErrInvalidInput}
	}
	if !utf8.Valid(raw.Content) {
		return nil, &domain.ParseError{Reason: "content is not valid UTF-8 text"}
	}

	text := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")

	return &domain.ParsedDocument{
		Text:       text,
		Boundaries: paragraphBoundaries(text),
	}, nil
}

// paragraphBoundaries returns the offsets of paragraphs that follow a blank line.
func paragraphBoundaries(text string) []int {
	boundaries := []int{0}
	offset := 0
	for {
		i := strings.Index(text[offset:], "\n\n")
		if i < 0 {
			break
		}
		next := offset + i + 2
		for next < len(text) && text[next] == '\n' {
			next++
		}
		if next >= len(text) {
			break
		}
		boundaries = append(boundaries, next)
		offset = next
	}
	return boundaries
}
