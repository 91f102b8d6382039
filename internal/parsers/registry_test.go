package parsers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

type stubParser struct {
	name     string
	mimes    []string
	exts     []string
	priority int
	text     string
}

func (s *stubParser) Name() string                  { return s.name }
func (s *stubParser) SupportedMIMETypes() []string  { return s.mimes }
func (s *stubParser) SupportedExtensions() []string { return s.exts }
func (s *stubParser) Priority() int                 { return s.priority }
func (s *stubParser) Parse(context.Context, *domain.RawDocument) (*domain.ParsedDocument, error) {
	return &domain.ParsedDocument{Text: s.text}, nil
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	low := &stubParser{name: "low", mimes: []string{"text/plain"}, exts: []string{".txt"}, priority: 5}
	high := &stubParser{name: "high", mimes: []string{"text/plain"}, priority: 50}
	md := &stubParser{name: "md", mimes: []string{"text/markdown"}, exts: []string{".md"}, priority: 50}
	r.Register(low)
	r.Register(high)
	r.Register(md)

	tests := []struct {
		name     string
		raw      domain.RawDocument
		expected string
	}{
		{"mime picks highest priority", domain.RawDocument{MIMEType: "text/plain"}, "high"},
		{"mime parameters ignored", domain.RawDocument{MIMEType: "text/plain; charset=utf-8"}, "high"},
		{"extension fallback", domain.RawDocument{Name: "notes.MD"}, "md"},
		{"octet-stream falls back to extension", domain.RawDocument{Name: "a.txt", MIMEType: "application/octet-stream"}, "low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.raw
			p := r.Resolve(&raw)
			require.NotNil(t, p)
			assert.Equal(t, tt.expected, p.Name())
		})
	}

	assert.Nil(t, r.Resolve(&domain.RawDocument{Name: "image.png", MIMEType: "image/png"}))
}

func TestRegistry_Parse_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Parse(context.Background(), &domain.RawDocument{Name: "x.bin"})

	var parseErr *domain.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_Parse_NoTextExtracted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubParser{name: "empty", mimes: []string{"application/pdf"}, text: "  \n "})

	_, err := r.Parse(context.Background(), &domain.RawDocument{MIMEType: "application/pdf"})

	var parseErr *domain.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "no text extracted", parseErr.Reason)
	assert.False(t, domain.IsRetryable(err))
}

func TestRegistry_Parse_AddsLeadingBoundary(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubParser{name: "txt", mimes: []string{"text/plain"}, text: "hello"})

	parsed, err := r.Parse(context.Background(), &domain.RawDocument{MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, parsed.Boundaries)
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	types := r.SupportedMIMETypes()

	assert.Contains(t, types, "application/pdf")
	assert.Contains(t, types, "text/markdown")
	assert.Contains(t, types, "text/html")
	assert.Contains(t, types, "text/plain")

	parsed, err := r.Parse(context.Background(), &domain.RawDocument{
		Name:    "readme.md",
		Content: []byte("# Title\n\nBody text."),
	})
	require.NoError(t, err)
	assert.Contains(t, parsed.Text, "Body text.")
}

func TestDetectMIMEType(t *testing.T) {
	assert.Equal(t, "text/markdown", DetectMIMEType("a.md"))
	assert.Equal(t, "text/plain", DetectMIMEType("a.TXT"))
	assert.Equal(t, "application/pdf", DetectMIMEType("a.pdf"))
	assert.Equal(t, "", DetectMIMEType("noext"))
}
