package plaintext

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	parser := New()
	require.NotNil(t, parser)
	assert.Equal(t, "plaintext", parser.Name())
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "application/json")
	assert.Contains(t, New().SupportedExtensions(), ".txt")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority())
}

func TestParse_Success(t *testing.T) {
	raw := &domain.RawDocument{
		Name:     "document.txt",
		MIMEType: "text/plain",
		Content:  []byte("This is plain text content."),
	}

	parsed, err := New().Parse(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "This is plain text content.", parsed.Text)
	assert.Equal(t, []int{0}, parsed.Boundaries)
}

func TestParse_ParagraphBoundaries(t *testing.T) {
	raw := &domain.RawDocument{Content: []byte("first\r\n\r\nsecond\n\n\nthird\n\n")}

	parsed, err := New().Parse(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond\n\n\nthird\n\n", parsed.Text)
	assert.Equal(t, []int{0, 7, 16}, parsed.Boundaries)
	assert.Equal(t, "second", parsed.Text[7:13])
	assert.Equal(t, "third", parsed.Text[16:21])
}

func TestParse_Binary(t *testing.T) {
	raw := &domain.RawDocument{Content: []byte{0xff, 0xfe, 0x00, 0x01}}

	_, err := New().Parse(context.Background(), raw)
	var parseErr *domain.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.False(t, domain.IsRetryable(err))
}

func TestParse_NilDocument(t *testing.T) {
	_, err := New().Parse(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Parser = (*Parser)(nil)
}
