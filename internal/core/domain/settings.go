package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API, or any OpenAI-compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend selects the Chunk Store implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendSQLite keeps vectors in the local SQLite database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendQdrant delegates to a Qdrant server.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendMemory keeps vectors in process memory.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendQdrant, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `validate:"required,oneof=ollama openai gemini"`

	// Model is the embedding model name.
	Model string `validate:"required"`

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible APIs).
	BaseURL string `validate:"omitempty,url"`

	// APIKey is the API key for cloud providers.
	APIKey string

	// Dimensions is the fixed embedding length for the deployment.
	Dimensions int `validate:"min=1,max=8192"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds answer generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider `validate:"required,oneof=ollama openai anthropic gemini"`

	// Model is the LLM model name.
	Model string `validate:"required"`

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible APIs).
	BaseURL string `validate:"omitempty,url"`

	// APIKey is the API key for cloud providers.
	APIKey string

	// MaxTokens caps the generated answer length.
	MaxTokens int `validate:"min=1,max=32768"`

	// Temperature is the sampling temperature.
	Temperature float64 `validate:"min=0,max=2"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds Chunk Store configuration.
type VectorStoreSettings struct {
	Backend    VectorBackend `validate:"required,oneof=sqlite qdrant memory"`
	URL        string        `validate:"required_if=Backend qdrant"`
	APIKey     string
	Collection string `validate:"required"`
}

// IngestionSettings tunes the ingestion pipeline.
type IngestionSettings struct {
	// ChunkTokens is the token budget per chunk.
	ChunkTokens int `validate:"min=16,max=8192"`

	// OverlapFraction is the share of each window repeated in the next.
	OverlapFraction float64 `validate:"min=0,max=0.5"`

	// EmbedBatchSize is the number of chunk texts per embedding call.
	EmbedBatchSize int `validate:"min=1,max=2048"`

	// EmbedConcurrency bounds concurrent embedding calls within one job.
	EmbedConcurrency int `validate:"min=1,max=64"`

	// EmbedRPS limits embedding calls per second across all jobs.
	EmbedRPS float64 `validate:"gt=0"`

	// MaxAttempts bounds executions per step before the job fails.
	MaxAttempts int `validate:"min=1,max=20"`

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration `validate:"gt=0"`

	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration `validate:"gtefield=InitialBackoff"`

	// StepTimeout bounds a single step attempt.
	StepTimeout time.Duration `validate:"gt=0"`

	// MaxJobs bounds concurrently running ingestion jobs.
	MaxJobs int `validate:"min=1,max=256"`
}

// RetrievalSettings tunes the retrieval-answer pipeline.
type RetrievalSettings struct {
	// TopK is the default number of chunks retrieved.
	TopK int `validate:"min=1,max=100"`

	// MaxContextChars bounds the assembled context.
	MaxContextChars int `validate:"min=1"`

	// ScoreThreshold drops matches scoring below it.
	ScoreThreshold float64 `validate:"min=-1,max=1"`

	// SourceBoost raises chunks whose document name matches query terms.
	SourceBoost bool

	// GenerationAttempts bounds calls to the generation collaborator.
	GenerationAttempts int `validate:"min=1,max=10"`
}

// VisualizationSettings bounds the projection session cache.
type VisualizationSettings struct {
	MaxSessions int           `validate:"min=1,max=1024"`
	SessionTTL  time.Duration `validate:"gt=0"`
}

// ReconcileSettings schedules the consistency pass.
type ReconcileSettings struct {
	// Schedule is a cron expression; empty disables scheduled runs.
	Schedule string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding     EmbeddingSettings
	LLM           LLMSettings
	VectorStore   VectorStoreSettings
	Ingestion     IngestionSettings
	Retrieval     RetrievalSettings
	Visualization VisualizationSettings
	Reconcile     ReconcileSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Providers default to a local Ollama so nothing needs an API key.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      DefaultEmbeddingModels()[AIProviderOllama],
			Dimensions: EmbeddingDimensions()[DefaultEmbeddingModels()[AIProviderOllama]],
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			MaxTokens:   512,
			Temperature: 0.2,
		},
		VectorStore: VectorStoreSettings{
			Backend:    VectorBackendSQLite,
			Collection: "docs",
		},
		Ingestion: IngestionSettings{
			ChunkTokens:      256,
			OverlapFraction:  0.2,
			EmbedBatchSize:   16,
			EmbedConcurrency: 4,
			EmbedRPS:         5,
			MaxAttempts:      4,
			InitialBackoff:   500 * time.Millisecond,
			MaxBackoff:       10 * time.Second,
			StepTimeout:      60 * time.Second,
			MaxJobs:          4,
		},
		Retrieval: RetrievalSettings{
			TopK:               5,
			MaxContextChars:    6000,
			ScoreThreshold:     0.1,
			GenerationAttempts: 3,
		},
		Visualization: VisualizationSettings{
			MaxSessions: 8,
			SessionTTL:  30 * time.Minute,
		},
		Reconcile: ReconcileSettings{
			Schedule: "@every 10m",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// AllLLMProviders returns providers that support answer generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "gemini-embedding-001",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
		AIProviderGemini:    "gemini-2.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"gemini-embedding-001": 768,
		"text-embedding-004":   768,
	}
}
