package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

func TestSupportedMIMETypes(t *testing.T) {
	p := New()

	assert.Equal(t, []string{"application/pdf"}, p.SupportedMIMETypes())
	assert.Equal(t, []string{".pdf"}, p.SupportedExtensions())
	assert.Greater(t, p.Priority(), 50)
}

func TestParse_NilDocument(t *testing.T) {
	_, err := New().Parse(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_Malformed(t *testing.T) {
	_, err := New(WithTempDir(t.TempDir())).Parse(context.Background(), &domain.RawDocument{
		Name:    "broken.pdf",
		Content: []byte("this is not a pdf"),
	})

	var parseErr *domain.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.False(t, domain.IsRetryable(err))
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		stream   string
		expected string
	}{
		{
			name:     "simple Tj",
			stream:   "BT /F1 12 Tf 72 712 Td (Hello World) Tj ET",
			expected: "Hello World\n",
		},
		{
			name:     "TJ array with kerning",
			stream:   "BT [(Hel) -20 (lo) -500 (there)] TJ ET",
			expected: "Hello there\n",
		},
		{
			name:     "line moves",
			stream:   "BT (first) Tj 0 -14 Td (second) Tj ET",
			expected: "first\nsecond\n",
		},
		{
			name:     "escapes",
			stream:   `BT (a \(b\) c\\d \101) Tj ET`,
			expected: "a (b) c\\d A\n",
		},
		{
			name:     "hex string",
			stream:   "BT <48656C6C6F> Tj ET",
			expected: "Hello\n",
		},
		{
			name:     "text outside BT ignored",
			stream:   "(hidden) Tj BT (shown) Tj ET",
			expected: "shown\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractText([]byte(tt.stream)))
		})
	}
}

func TestAssemble(t *testing.T) {
	parsed := assemble(map[int]string{1: "page one\n", 2: "  ", 3: "page three"}, 3)

	assert.Equal(t, "page one\n\npage three", parsed.Text)
	assert.Equal(t, []int{0, 10}, parsed.Boundaries)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Parser = (*Parser)(nil)
}
