package parsers

import (
	"github.com/SanjayDoppalapudi/RAG/internal/parsers/docx"
	"github.com/SanjayDoppalapudi/RAG/internal/parsers/html"
	"github.com/SanjayDoppalapudi/RAG/internal/parsers/markdown"
	"github.com/SanjayDoppalapudi/RAG/internal/parsers/pdf"
	"github.com/SanjayDoppalapudi/RAG/internal/parsers/plaintext"
)

// RegisterDefaults registers all built-in parsers with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(pdf.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(plaintext.New())
}

// NewDefaultRegistry returns a registry with every built-in parser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
