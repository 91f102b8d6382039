package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/adapters/driven/storage/memory"
	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// mockAIValidator records validation calls.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	embedCalls   int
	llmCalls     int
}

func (m *mockAIValidator) ValidateEmbedding(*domain.EmbeddingSettings) error {
	m.embedCalls++
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(*domain.LLMSettings) error {
	m.llmCalls++
	return m.llmErr
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil).WithEnv(noEnv)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Embedding.Model, settings.Embedding.Model)
	assert.Equal(t, defaults.Embedding.Dimensions, settings.Embedding.Dimensions)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.Equal(t, defaults.Ingestion, settings.Ingestion)
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, defaults.Visualization, settings.Visualization)
	assert.Equal(t, "@every 10m", settings.Reconcile.Schedule)
	require.NoError(t, service.Validate())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("embedding.api_key", "sk-embed")
	_ = store.Set("llm.temperature", 0.7)
	_ = store.Set("ingestion.step_timeout", "15s")
	_ = store.Set("retrieval.top_k", 9)
	_ = store.Set("retrieval.source_boost", true)
	_ = store.Set("vector_store.backend", "qdrant")
	_ = store.Set("vector_store.url", "http://qdrant:6333")
	_ = store.Set("reconcile.schedule", "")

	settings, err := NewSettingsService(store, nil).WithEnv(noEnv).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, 3072, settings.Embedding.Dimensions)
	assert.Empty(t, settings.Embedding.BaseURL)
	assert.Equal(t, "sk-embed", settings.Embedding.APIKey)
	assert.InDelta(t, 0.7, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, 15*time.Second, settings.Ingestion.StepTimeout)
	assert.Equal(t, 9, settings.Retrieval.TopK)
	assert.True(t, settings.Retrieval.SourceBoost)
	assert.Equal(t, domain.VectorBackendQdrant, settings.VectorStore.Backend)
	assert.Equal(t, "http://qdrant:6333", settings.VectorStore.URL)
	assert.Empty(t, settings.Reconcile.Schedule, "explicit empty schedule disables reconcile")
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "cohere")
	_ = store.Set("ingestion.initial_backoff", "soon")

	settings, err := NewSettingsService(store, nil).WithEnv(noEnv).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, 500*time.Millisecond, settings.Ingestion.InitialBackoff)
}

func TestSettingsService_Get_APIKeysFromEnvironment(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "gemini")
	_ = store.Set("llm.provider", "openai")

	service := NewSettingsService(store, nil).WithEnv(envMap(map[string]string{
		"GOOGLE_API_KEY":     "g-key",
		"OPENROUTER_API_KEY": "or-key",
		"QDRANT_API_KEY":     "q-key",
	}))

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "g-key", settings.Embedding.APIKey)
	assert.Equal(t, "or-key", settings.LLM.APIKey)
	assert.Equal(t, "q-key", settings.VectorStore.APIKey)

	// Config file wins over the environment
	_ = store.Set("llm.api_key", "file-key")
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "file-key", settings.LLM.APIKey)
}

func TestSettingsService_Save_RoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil).WithEnv(noEnv)

	settings := domain.DefaultAppSettings()
	settings.Embedding.BaseURL = "http://gpu-box:11434"
	settings.Ingestion.ChunkTokens = 512
	settings.Ingestion.MaxBackoff = 30 * time.Second
	settings.Retrieval.ScoreThreshold = 0.25
	settings.Visualization.SessionTTL = time.Hour

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", got.Embedding.BaseURL)
	assert.Equal(t, 512, got.Ingestion.ChunkTokens)
	assert.Equal(t, 30*time.Second, got.Ingestion.MaxBackoff)
	assert.InDelta(t, 0.25, got.Retrieval.ScoreThreshold, 1e-9)
	assert.Equal(t, time.Hour, got.Visualization.SessionTTL)
	assert.Equal(t, "30s", store.GetString("ingestion.max_backoff"))
}

func TestSettingsService_Save_DoesNotPersistEnvironmentKeys(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.provider", "anthropic")
	service := NewSettingsService(store, nil).WithEnv(envMap(map[string]string{
		"ANTHROPIC_API_KEY": "env-secret",
	}))

	settings, err := service.Get()
	require.NoError(t, err)
	require.Equal(t, "env-secret", settings.LLM.APIKey)

	require.NoError(t, service.Save(settings))

	_, exists := store.Get("llm.api_key")
	assert.False(t, exists)
}

func TestSettingsService_Save_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.AppSettings)
		target error
	}{
		{"zero top k", func(s *domain.AppSettings) { s.Retrieval.TopK = 0 }, domain.ErrInvalidInput},
		{"overlap too large", func(s *domain.AppSettings) { s.Ingestion.OverlapFraction = 0.9 }, domain.ErrInvalidInput},
		{"backoff inverted", func(s *domain.AppSettings) { s.Ingestion.MaxBackoff = time.Millisecond }, domain.ErrInvalidInput},
		{"qdrant without url", func(s *domain.AppSettings) { s.VectorStore.Backend = domain.VectorBackendQdrant }, domain.ErrInvalidInput},
		{"unknown backend", func(s *domain.AppSettings) { s.VectorStore.Backend = "faiss" }, domain.ErrInvalidInput},
		{"anthropic embeddings", func(s *domain.AppSettings) { s.Embedding.Provider = domain.AIProviderAnthropic }, domain.ErrInvalidInput},
		{"cloud llm without key", func(s *domain.AppSettings) { s.LLM.Provider = domain.AIProviderOpenAI }, domain.ErrLLMUnavailable},
		{"cloud embedding without key", func(s *domain.AppSettings) { s.Embedding.Provider = domain.AIProviderOpenAI }, domain.ErrEmbeddingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, nil).WithEnv(noEnv)
			settings := domain.DefaultAppSettings()
			tt.mutate(&settings)

			err := service.Save(&settings)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			_, written := store.Get("retrieval.top_k")
			assert.False(t, written, "nothing is written when validation fails")
		})
	}
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil).WithEnv(noEnv)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "sk-test"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, 1536, settings.Embedding.Dimensions)
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.Empty(t, settings.Embedding.BaseURL)

	// Switching back to a local provider restores the default URL
	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "mxbai-embed-large", ""))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.Equal(t, 1024, settings.Embedding.Dimensions)
}

func TestSettingsService_SetEmbeddingProvider_Errors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil).WithEnv(noEnv)

	err := service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil).WithEnv(noEnv)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", settings.LLM.Model)
	assert.Equal(t, "sk-ant", settings.LLM.APIKey)

	assert.ErrorIs(t, service.SetLLMProvider("cohere", "", ""), domain.ErrInvalidInput)
}

func TestSettingsService_ValidateProviderConfigs(t *testing.T) {
	validator := &mockAIValidator{llmErr: errors.New("connection refused")}
	service := NewSettingsService(memory.NewConfigStore(), validator).WithEnv(noEnv)

	assert.NoError(t, service.ValidateEmbeddingConfig())
	assert.EqualError(t, service.ValidateLLMConfig(), "connection refused")
	assert.Equal(t, 1, validator.embedCalls)
	assert.Equal(t, 1, validator.llmCalls)

	// Without a validator the checks are skipped
	plain := NewSettingsService(memory.NewConfigStore(), nil)
	assert.NoError(t, plain.ValidateEmbeddingConfig())
	assert.NoError(t, plain.ValidateLLMConfig())
}
