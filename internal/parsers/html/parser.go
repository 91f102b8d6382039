package html

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles HTML documents.
type Parser struct{}

// New creates a new HTML parser.
func New() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "html"
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50 // Generic MIME parser, higher than plaintext
}

var (
	blockTags = map[string]bool{
		"p": true, "div": true, "li": true, "tr": true, "blockquote": true,
		"pre": true, "table": true, "section": true, "article": true,
		"ul": true, "ol": true, "dd": true, "dt": true, "figcaption": true,
		"header": true, "footer": true, "main": true, "td": true, "th": true,
	}
	headingTags = map[string]bool{
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	}
	multiSpaces = regexp.MustCompile(`[ \t\p{Zs}]+`)
)

// Parse extracts readable text, one line per block element.
func (p *Parser) Parse(_ context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, &domain.ParseError{Reason: "empty document", Err: domain.ErrInvalidInput}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, &domain.ParseError{Reason: "invalid html", Err: err}
	}
	doc.Find("head, script, style, noscript, svg, template, iframe").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	w := &lineWriter{}
	w.walk(root)
	w.flush(false)

	return w.result(), nil
}

type line struct {
	text    string
	heading bool
}

// lineWriter accumulates inline text and flushes it as a line at block edges.
type lineWriter struct {
	current strings.Builder
	lines   []line
}

func (w *lineWriter) walk(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			w.current.WriteString(s.Text())
		case headingTags[name]:
			w.flush(false)
			w.walk(s)
			w.flush(true)
		case blockTags[name]:
			w.flush(false)
			w.walk(s)
			w.flush(false)
		case name == "br" || name == "hr":
			w.flush(false)
		default:
			w.walk(s)
		}
	})
}

func (w *lineWriter) flush(heading bool) {
	text := strings.TrimSpace(multiSpaces.ReplaceAllString(w.current.String(), " "))
	w.current.Reset()
	for _, part := range strings.Split(text, "\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			w.lines = append(w.lines, line{text: part, heading: heading})
			heading = false
		}
	}
}

func (w *lineWriter) result() *domain.ParsedDocument {
	var b strings.Builder
	boundaries := []int{0}
	for i, l := range w.lines {
		if i > 0 {
			b.WriteString("\n")
			if l.heading {
				boundaries = append(boundaries, b.Len())
			}
		}
		b.WriteString(l.text)
	}
	return &domain.ParsedDocument{Text: b.String(), Boundaries: boundaries}
}
