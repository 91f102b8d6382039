package parsers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

var log = logger.With("parse")

// Registry dispatches documents to the best matching parser.
type Registry struct {
	mu      sync.RWMutex
	parsers []driven.Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a parser to the registry.
func (r *Registry) Register(p driven.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers = append(r.parsers, p)
	sort.SliceStable(r.parsers, func(i, j int) bool {
		return r.parsers[i].Priority() > r.parsers[j].Priority()
	})
}

// SupportedMIMETypes returns all MIME types that can be parsed, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, p := range r.parsers {
		for _, t := range p.SupportedMIMETypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Resolve returns the parser that would handle raw, or nil.
func (r *Registry) Resolve(raw *domain.RawDocument) driven.Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mimeType := normaliseMIME(raw.MIMEType)
	if mimeType != "" && mimeType != "application/octet-stream" {
		for _, p := range r.parsers {
			if contains(p.SupportedMIMETypes(), mimeType) {
				return p
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(raw.Name))
	if ext != "" {
		for _, p := range r.parsers {
			if contains(p.SupportedExtensions(), ext) {
				return p
			}
		}
	}

	return nil
}

// Parse extracts text using the best matching parser.
func (r *Registry) Parse(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, &domain.ParseError{Reason: "empty document", Err: domain.ErrInvalidInput}
	}

	p := r.Resolve(raw)
	if p == nil {
		return nil, &domain.ParseError{
			Reason: fmt.Sprintf("no parser for %q (%s)", raw.Name, raw.MIMEType),
			Err:    domain.ErrUnsupportedType,
		}
	}
	log.Debug("using %s parser for %s", p.Name(), raw.Name)

	parsed, err := p.Parse(ctx, raw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return nil, &domain.ParseError{Reason: "no text extracted"}
	}
	if len(parsed.Boundaries) == 0 || parsed.Boundaries[0] != 0 {
		parsed.Boundaries = append([]int{0}, parsed.Boundaries...)
	}
	return parsed, nil
}

// DetectMIMEType guesses a MIME type from a file name.
func DetectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", ".text", ".log":
		return "text/plain"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return normaliseMIME(t)
	}
	return ""
}

func normaliseMIME(t string) string {
	if t == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(t))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
