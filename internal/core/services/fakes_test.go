package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/postprocessors/chunker"
)

const testDims = 4

// --- Parser ---

// fakeParser returns the content as text. err, when set, is returned from
// every call.
type fakeParser struct {
	err   error
	calls atomic.Int32
}

func (p *fakeParser) Parse(_ context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &domain.ParsedDocument{Text: string(raw.Content), Boundaries: []int{0}}, nil
}

func (p *fakeParser) Register(driven.Parser) {}

func (p *fakeParser) SupportedMIMETypes() []string { return []string{"text/plain"} }

// --- Chunker ---

// paragraphChunker emits one chunk per blank-line separated paragraph.
type paragraphChunker struct{}

func (paragraphChunker) Name() string { return "paragraph" }

func (paragraphChunker) Chunk(_ context.Context, documentID string, parsed *domain.ParsedDocument) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, para := range strings.Split(parsed.Text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		seq := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:            chunker.ChunkID(documentID, seq),
			DocumentID:    documentID,
			SequenceIndex: seq,
			Text:          para,
		})
	}
	return chunks, nil
}

// --- Embedder ---

// fakeEmbedder derives a deterministic vector from each text. The first
// failFirst calls fail with a retryable provider error; failAlways makes
// every call fail. block, when set, is waited on by every batch call.
type fakeEmbedder struct {
	dims       int
	failFirst  int32
	failOnCall int32
	failAlways error
	block      chan struct{}
	entered    chan struct{}
	vectors    map[string][]float32

	calls atomic.Int32
	texts atomic.Int32
	once  sync.Once
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dims: testDims}
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	n := e.calls.Add(1)
	e.texts.Add(int32(len(texts)))
	if e.entered != nil {
		e.once.Do(func() { close(e.entered) })
	}
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.failAlways != nil {
		return nil, e.failAlways
	}
	if n <= e.failFirst || n == e.failOnCall {
		return nil, &domain.ProviderError{Provider: "fake", StatusCode: 503, Retryable: true, Err: errors.New("unavailable")}
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = hashVector(t, e.dims)
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int { return e.dims }
func (e *fakeEmbedder) ModelName() string { return "fake-embed" }
func (e *fakeEmbedder) Ping(context.Context) error { return nil }
func (e *fakeEmbedder) Close() error { return nil }

func hashVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		h := fnv.New32a()
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		v[i] = float32(h.Sum32()%1000)/1000 + 0.001
	}
	return v
}

// --- LLM ---

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	failures int
	calls    int
	messages []driven.ChatMessage
}

func (l *fakeLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	return l.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{})
}

func (l *fakeLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.messages = messages
	if l.err != nil {
		return "", l.err
	}
	if l.calls <= l.failures {
		return "", &domain.GenerationError{Provider: "fake", Retryable: true, Err: errors.New("overloaded")}
	}
	return l.reply, nil
}

func (l *fakeLLM) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *fakeLLM) ModelName() string { return "fake-llm" }
func (l *fakeLLM) Ping(context.Context) error { return nil }
func (l *fakeLLM) Close() error { return nil }

// --- Prompts ---

type fakePrompts struct{}

func (fakePrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptAnswerSystem:
		return "system", nil
	case driven.PromptAnswer:
		return "context:\n%s\n\nquestion: %s", nil
	default:
		return "", domain.ErrNotFound
	}
}

func (fakePrompts) Reload() {}

// --- Settings ---

func testIngestionSettings() domain.IngestionSettings {
	return domain.IngestionSettings{
		ChunkTokens:      64,
		OverlapFraction:  0,
		EmbedBatchSize:   2,
		EmbedConcurrency: 2,
		EmbedRPS:         1000,
		MaxAttempts:      3,
		InitialBackoff:   time.Millisecond,
		MaxBackoff:       5 * time.Millisecond,
		StepTimeout:      5 * time.Second,
		MaxJobs:          2,
	}
}
