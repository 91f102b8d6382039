package driven

import "github.com/SanjayDoppalapudi/RAG/internal/core/domain"

// AIConfigValidator builds a throwaway client from candidate settings and
// pings it, so a bad key or model is reported before the settings are used.
type AIConfigValidator interface {
	// ValidateEmbedding also rejects a provider whose vectors do not match
	// the configured dimension.
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}
