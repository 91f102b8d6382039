// Package chunker provides a token-window text chunking processor.
package chunker

import (
	"context"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkTokens is the default number of tokens per chunk.
const DefaultChunkTokens = 256

// DefaultOverlapFraction is the default share of a window repeated in the next.
const DefaultOverlapFraction = 0.2

// Processor splits parsed text into fixed token windows with a fixed overlap.
// Tokens are whitespace-separated words; chunk text is the exact slice of
// the source covering its tokens, so original spacing is preserved.
type Processor struct {
	chunkTokens     int
	overlapFraction float64
	overlap         int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkTokens sets the chunk size in tokens.
func WithChunkTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.chunkTokens = n
		}
	}
}

// WithOverlapFraction sets the overlap as a fraction of the chunk size.
func WithOverlapFraction(f float64) Option {
	return func(p *Processor) {
		if f >= 0 && f < 1 {
			p.overlapFraction = f
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkTokens:     DefaultChunkTokens,
		overlapFraction: DefaultOverlapFraction,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.overlap = int(float64(p.chunkTokens) * p.overlapFraction)
	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkTokens {
		p.overlap = p.chunkTokens / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkTokens returns the configured window size.
func (p *Processor) ChunkTokens() int {
	return p.chunkTokens
}

// Overlap returns the number of tokens shared by consecutive windows.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits the parsed text into windows. Empty or whitespace-only text
// produces no chunks. Chunk IDs are derived from (documentID, index), so
// chunking the same text twice yields identical chunks.
func (p *Processor) Chunk(ctx context.Context, documentID string, parsed *domain.ParsedDocument) ([]domain.Chunk, error) {
	if parsed == nil {
		return nil, nil
	}
	tokens := tokenize(parsed.Text)
	if len(tokens) == 0 {
		return nil, nil
	}

	stride := p.chunkTokens - p.overlap
	estimated := len(tokens)/stride + 1
	chunks := make([]domain.Chunk, 0, estimated)

	for start := 0; start < len(tokens); start += stride {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + p.chunkTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		seq := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:            ChunkID(documentID, seq),
			DocumentID:    documentID,
			SequenceIndex: seq,
			Text:          parsed.Text[tokens[start].start:tokens[end-1].end],
			Span:          domain.TokenSpan{Start: start, End: end},
		})

		if end == len(tokens) {
			break
		}
	}

	return chunks, nil
}

// ChunkID returns the deterministic ID for a document's chunk: a name-based
// UUID over "<documentID>:<sequenceIndex>" in the URL namespace.
func ChunkID(documentID string, sequenceIndex int) string {
	name := documentID + ":" + strconv.Itoa(sequenceIndex)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// token is the byte range of one whitespace-separated word.
type token struct {
	start int
	end   int
}

func tokenize(text string) []token {
	var tokens []token
	inToken := false
	start := 0

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if inToken {
				tokens = append(tokens, token{start: start, end: i})
				inToken = false
			}
		} else if !inToken {
			start = i
			inToken = true
		}
		i += size
	}
	if inToken {
		tokens = append(tokens, token{start: start, end: len(text)})
	}

	return tokens
}
