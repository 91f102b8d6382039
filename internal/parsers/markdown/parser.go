// Package markdown parses Markdown documents into plain text.
package markdown

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles Markdown documents.
type Parser struct {
	md goldmark.Markdown
}

// New creates a new Markdown parser.
func New() *Parser {
	return &Parser{md: goldmark.New()}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "markdown"
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50 // Generic MIME parser, higher than plaintext
}

// Parse walks the Markdown AST and emits block text separated by blank
// lines. Formatting markers, link targets and raw HTML are dropped; code
// blocks are kept verbatim. Each heading starts a layout boundary.
func (p *Parser) Parse(_ context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, &domain.ParseError{Reason: "empty document", Err: domain.ErrInvalidInput}
	}

	src := raw.Content
	root := p.md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	boundaries := []int{0}

	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering && b.Len() > 0 {
				boundaries = append(boundaries, b.Len())
			}
			if !entering {
				b.WriteString("\n\n")
			}
		case *ast.Paragraph, *ast.TextBlock:
			if !entering {
				b.WriteString("\n\n")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				b.WriteString("\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteString("\n")
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, &domain.ParseError{Reason: "markdown walk failed", Err: err}
	}

	out := strings.TrimRight(b.String(), "\n")
	var kept []int
	for _, off := range boundaries {
		if off < len(out) {
			kept = append(kept, off)
		}
	}

	return &domain.ParsedDocument{Text: out, Boundaries: kept}, nil
}
