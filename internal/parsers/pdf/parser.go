// Package pdf extracts text from PDF documents with pdfcpu.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles PDF documents. Each page becomes a layout boundary.
type Parser struct {
	tempDir string
}

// Option configures the parser.
type Option func(*Parser)

// WithTempDir sets the directory used for pdfcpu scratch files.
func WithTempDir(dir string) Option {
	return func(p *Parser) {
		p.tempDir = dir
	}
}

// New creates a new PDF parser.
func New(opts ...Option) *Parser {
	p := &Parser{tempDir: os.TempDir()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "pdf"
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 60
}

// Parse extracts the text of every page. pdfcpu works on files, so the
// upload is written to a scratch directory that is removed afterwards.
func (p *Parser) Parse(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, &domain.ParseError{Reason: "empty document", Err: domain.ErrInvalidInput}
	}

	workDir, err := os.MkdirTemp(p.tempDir, "ragvis-pdf-")
	if err != nil {
		return nil, fmt.Errorf("create pdf scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inFile := filepath.Join(workDir, "upload.pdf")
	if err := os.WriteFile(inFile, raw.Content, 0600); err != nil {
		return nil, fmt.Errorf("write pdf scratch file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(inFile)
	if err != nil {
		return nil, &domain.ParseError{Reason: "unreadable pdf", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outDir := filepath.Join(workDir, "content")
	if err := os.MkdirAll(outDir, 0700); err != nil {
		return nil, fmt.Errorf("create pdf content dir: %w", err)
	}
	if err := api.ExtractContentFile(inFile, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return nil, &domain.ParseError{Reason: "content extraction failed", Err: err}
	}

	pages, err := readPages(outDir)
	if err != nil {
		return nil, fmt.Errorf("read pdf content: %w", err)
	}

	return assemble(pages, pdfCtx.PageCount), nil
}

var pageFile = regexp.MustCompile(`page_(\d+)`)

// readPages maps page numbers to the text of their content streams.
func readPages(dir string) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	pages := make(map[int]string)
	for _, name := range names {
		m := pageFile.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		pages[n] += ExtractText(data)
	}
	return pages, nil
}

// assemble joins page texts with blank lines, recording where each
// non-empty page starts.
func assemble(pages map[int]string, pageCount int) *domain.ParsedDocument {
	var b strings.Builder
	var boundaries []int
	for n := 1; n <= pageCount; n++ {
		text := strings.TrimSpace(pages[n])
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		boundaries = append(boundaries, b.Len())
		b.WriteString(text)
	}
	if len(boundaries) == 0 {
		boundaries = []int{0}
	}
	return &domain.ParsedDocument{Text: b.String(), Boundaries: boundaries}
}
