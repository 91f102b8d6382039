package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

var answerLog = logger.With("answer")

// Source-name boost applied when retrieval.source_boost is on: a chunk whose
// document name contains query terms gains sourceBoostBase plus
// sourceBoostPerTerm for each matching term.
const (
	sourceBoostBase      = 0.5
	sourceBoostPerTerm   = 0.1
	sourceBoostMinTerm   = 3
	sourceBoostOverfetch = 4
)

// AnswerService is the retrieval-answer pipeline.
type AnswerService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	registry driven.DocumentRegistry
	llm      driven.LLMService
	prompts  driven.PromptStore

	retrieval domain.RetrievalSettings
	generate  driven.ChatOptions
	policy    RetryPolicy
}

// NewAnswerService creates the answer pipeline. Generation failures are
// retried GenerationAttempts times with the given backoff bounds.
func NewAnswerService(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	registry driven.DocumentRegistry,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.AppSettings,
) *AnswerService {
	return &AnswerService{
		embedder:  embedder,
		vectors:   vectors,
		registry:  registry,
		llm:       llm,
		prompts:   prompts,
		retrieval: settings.Retrieval,
		generate: driven.ChatOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		},
		policy: RetryPolicy{
			MaxAttempts:    settings.Retrieval.GenerationAttempts,
			InitialBackoff: settings.Ingestion.InitialBackoff,
			MaxBackoff:     settings.Ingestion.MaxBackoff,
			Multiplier:     2.0,
			Jitter:         0.25,
		},
	}
}

// Answer embeds the question, retrieves context from Ready documents and
// generates an answer grounded on it.
func (s *AnswerService) Answer(ctx context.Context, query string, topK int) (*domain.QueryContext, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = s.retrieval.TopK
	}

	qc := &domain.QueryContext{QueryText: query}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qc.QueryEmbedding = embedding

	retrieved, err := s.retrieve(ctx, query, embedding, topK)
	if err != nil {
		return nil, err
	}
	contextBlock, used := buildContext(retrieved, s.retrieval.MaxContextChars)
	qc.Retrieved = used

	if len(used) == 0 {
		answerLog.Debug("no relevant context for %q", query)
		qc.Answer = domain.NoRelevantContextAnswer
		qc.NoContext = true
		return qc, nil
	}

	if s.llm == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, domain.ErrLLMUnavailable)
	}
	messages, err := s.messages(contextBlock, query)
	if err != nil {
		return nil, err
	}

	var answer string
	attempts, err := s.policy.Do(ctx, answerLog, "generate", func(ctx context.Context) error {
		out, err := s.llm.Chat(ctx, messages, s.generate)
		if err != nil {
			return err
		}
		answer = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrGenerationUnavailable, attempts, err)
	}

	qc.Answer = answer
	answerLog.Info("answered %q from %d chunks", query, len(used))
	return qc, nil
}

// retrieve searches chunks of Ready documents and returns up to topK ranked
// by descending score, then document ID, then sequence index.
func (s *AnswerService) retrieve(ctx context.Context, query string, embedding []float32, topK int) ([]domain.RetrievedChunk, error) {
	ready, err := s.registry.ListByStatus(ctx, domain.StatusReady)
	if err != nil {
		return nil, fmt.Errorf("list ready documents: %w", err)
	}
	if len(ready) == 0 {
		return nil, nil
	}

	names := make(map[string]string, len(ready))
	ids := make([]string, 0, len(ready))
	for _, d := range ready {
		names[d.ID] = d.DisplayName
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)

	fetch := topK
	if s.retrieval.SourceBoost {
		fetch = topK * sourceBoostOverfetch
	}
	threshold := s.retrieval.ScoreThreshold
	hits, err := s.vectors.Search(ctx, embedding, fetch, driven.SearchOptions{
		Filter:         driven.VectorFilter{DocumentIDs: ids},
		ScoreThreshold: &threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		name, ok := names[h.Metadata.DocumentID]
		if !ok {
			continue
		}
		meta := h.Metadata
		meta.DocumentName = name
		chunks = append(chunks, domain.RetrievedChunk{ChunkID: h.ID, Metadata: meta, Score: h.Score})
	}

	if s.retrieval.SourceBoost {
		boostBySource(chunks, query)
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Less(chunks[j]) })

	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

func (s *AnswerService) messages(contextBlock, query string) ([]driven.ChatMessage, error) {
	system, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	tmpl, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: fmt.Sprintf(tmpl, contextBlock, query)},
	}, nil
}

// boostBySource raises the score of chunks whose document name contains
// query terms of at least sourceBoostMinTerm characters.
func boostBySource(chunks []domain.RetrievedChunk, query string) {
	var terms []string
	seen := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(t)) >= sourceBoostMinTerm && !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return
	}

	for i := range chunks {
		name := strings.ToLower(chunks[i].Metadata.DocumentName)
		matches := 0
		for _, t := range terms {
			if strings.Contains(name, t) {
				matches++
			}
		}
		if matches > 0 {
			chunks[i].Score += sourceBoostBase + sourceBoostPerTerm*float64(matches)
		}
	}
}

// buildContext renders chunks as "- text" bullets in rank order, stopping
// before maxChars would be exceeded. A first chunk longer than maxChars is
// truncated rather than dropped. It returns the chunks actually used.
func buildContext(chunks []domain.RetrievedChunk, maxChars int) (string, []domain.RetrievedChunk) {
	if len(chunks) == 0 {
		return "", nil
	}

	var b strings.Builder
	used := make([]domain.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		bullet := "- " + strings.TrimSpace(c.Metadata.Text)
		sep := 0
		if b.Len() > 0 {
			sep = 2
		}
		if maxChars > 0 && b.Len()+sep+len(bullet) > maxChars {
			if b.Len() == 0 {
				b.WriteString(truncateUTF8(bullet, maxChars))
				used = append(used, c)
			}
			break
		}
		if sep > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(bullet)
		used = append(used, c)
	}
	return b.String(), used
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
