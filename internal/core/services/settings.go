package services

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMMaxTokens   = "llm.max_tokens"
	keyLLMTemperature = "llm.temperature"

	keyVectorBackend    = "vector_store.backend"
	keyVectorURL        = "vector_store.url"
	keyVectorAPIKey     = "vector_store.api_key"
	keyVectorCollection = "vector_store.collection"

	keyChunkTokens      = "ingestion.chunk_tokens"
	keyOverlapFraction  = "ingestion.overlap_fraction"
	keyEmbedBatchSize   = "ingestion.embed_batch_size"
	keyEmbedConcurrency = "ingestion.embed_concurrency"
	keyEmbedRPS         = "ingestion.embed_rps"
	keyMaxAttempts      = "ingestion.max_attempts"
	keyInitialBackoff   = "ingestion.initial_backoff"
	keyMaxBackoff       = "ingestion.max_backoff"
	keyStepTimeout      = "ingestion.step_timeout"
	keyMaxJobs          = "ingestion.max_jobs"

	keyTopK               = "retrieval.top_k"
	keyMaxContextChars    = "retrieval.max_context_chars"
	keyScoreThreshold     = "retrieval.score_threshold"
	keySourceBoost        = "retrieval.source_boost"
	keyGenerationAttempts = "retrieval.generation_attempts"

	keyMaxSessions = "visualization.max_sessions"
	keySessionTTL  = "visualization.session_ttl"

	keyReconcileSchedule = "reconcile.schedule"
)

// providerEnvKeys lists environment variables consulted, in order, when a
// provider's API key is not in the config file.
var providerEnvKeys = map[domain.AIProvider][]string{
	domain.AIProviderOpenAI:    {"OPENAI_API_KEY", "OPENROUTER_API_KEY"},
	domain.AIProviderAnthropic: {"ANTHROPIC_API_KEY"},
	domain.AIProviderGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

const qdrantEnvKey = "QDRANT_API_KEY"

// defaultOllamaURL is used for local providers without a configured URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService reads and writes application settings through a
// ConfigStore, filling unset values from defaults and API keys from the
// environment.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	validate    *validator.Validate
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// aiValidator may be nil, in which case connectivity checks are skipped.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup. Used by tests.
func (s *SettingsService) WithEnv(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, d.Embedding.Provider)
	embedModel := s.getString(keyEmbedModel, modelFor(embedProvider, domain.DefaultEmbeddingModels(), d.Embedding.Model))
	llmProvider := s.getProvider(keyLLMProvider, d.LLM.Provider)

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   embedProvider,
			Model:      embedModel,
			BaseURL:    s.baseURL(keyEmbedBaseURL, embedProvider),
			APIKey:     s.apiKey(keyEmbedAPIKey, embedProvider),
			Dimensions: s.getInt(keyEmbedDimensions, dimensionsFor(embedModel, d.Embedding.Dimensions)),
		},
		LLM: domain.LLMSettings{
			Provider:    llmProvider,
			Model:       s.getString(keyLLMModel, modelFor(llmProvider, domain.DefaultLLMModels(), d.LLM.Model)),
			BaseURL:     s.baseURL(keyLLMBaseURL, llmProvider),
			APIKey:      s.apiKey(keyLLMAPIKey, llmProvider),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:    domain.VectorBackend(s.getString(keyVectorBackend, string(d.VectorStore.Backend))),
			URL:        s.configStore.GetString(keyVectorURL),
			APIKey:     s.getString(keyVectorAPIKey, s.env(qdrantEnvKey)),
			Collection: s.getString(keyVectorCollection, d.VectorStore.Collection),
		},
		Ingestion: domain.IngestionSettings{
			ChunkTokens:      s.getInt(keyChunkTokens, d.Ingestion.ChunkTokens),
			OverlapFraction:  s.getFloat(keyOverlapFraction, d.Ingestion.OverlapFraction),
			EmbedBatchSize:   s.getInt(keyEmbedBatchSize, d.Ingestion.EmbedBatchSize),
			EmbedConcurrency: s.getInt(keyEmbedConcurrency, d.Ingestion.EmbedConcurrency),
			EmbedRPS:         s.getFloat(keyEmbedRPS, d.Ingestion.EmbedRPS),
			MaxAttempts:      s.getInt(keyMaxAttempts, d.Ingestion.MaxAttempts),
			InitialBackoff:   s.getDuration(keyInitialBackoff, d.Ingestion.InitialBackoff),
			MaxBackoff:       s.getDuration(keyMaxBackoff, d.Ingestion.MaxBackoff),
			StepTimeout:      s.getDuration(keyStepTimeout, d.Ingestion.StepTimeout),
			MaxJobs:          s.getInt(keyMaxJobs, d.Ingestion.MaxJobs),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:               s.getInt(keyTopK, d.Retrieval.TopK),
			MaxContextChars:    s.getInt(keyMaxContextChars, d.Retrieval.MaxContextChars),
			ScoreThreshold:     s.getFloat(keyScoreThreshold, d.Retrieval.ScoreThreshold),
			SourceBoost:        s.getBool(keySourceBoost, d.Retrieval.SourceBoost),
			GenerationAttempts: s.getInt(keyGenerationAttempts, d.Retrieval.GenerationAttempts),
		},
		Visualization: domain.VisualizationSettings{
			MaxSessions: s.getInt(keyMaxSessions, d.Visualization.MaxSessions),
			SessionTTL:  s.getDuration(keySessionTTL, d.Visualization.SessionTTL),
		},
		Reconcile: domain.ReconcileSettings{
			Schedule: s.getStringAllowEmpty(keyReconcileSchedule, d.Reconcile.Schedule),
		},
	}

	return settings, nil
}

// Save persists application settings. API keys are only written when set so
// keys supplied through the environment stay out of the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.check(settings); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyVectorBackend, string(settings.VectorStore.Backend)},
		{keyVectorURL, settings.VectorStore.URL},
		{keyVectorCollection, settings.VectorStore.Collection},
		{keyChunkTokens, settings.Ingestion.ChunkTokens},
		{keyOverlapFraction, settings.Ingestion.OverlapFraction},
		{keyEmbedBatchSize, settings.Ingestion.EmbedBatchSize},
		{keyEmbedConcurrency, settings.Ingestion.EmbedConcurrency},
		{keyEmbedRPS, settings.Ingestion.EmbedRPS},
		{keyMaxAttempts, settings.Ingestion.MaxAttempts},
		{keyInitialBackoff, settings.Ingestion.InitialBackoff.String()},
		{keyMaxBackoff, settings.Ingestion.MaxBackoff.String()},
		{keyStepTimeout, settings.Ingestion.StepTimeout.String()},
		{keyMaxJobs, settings.Ingestion.MaxJobs},
		{keyTopK, settings.Retrieval.TopK},
		{keyMaxContextChars, settings.Retrieval.MaxContextChars},
		{keyScoreThreshold, settings.Retrieval.ScoreThreshold},
		{keySourceBoost, settings.Retrieval.SourceBoost},
		{keyGenerationAttempts, settings.Retrieval.GenerationAttempts},
		{keyMaxSessions, settings.Visualization.MaxSessions},
		{keySessionTTL, settings.Visualization.SessionTTL.String()},
		{keyReconcileSchedule, settings.Reconcile.Schedule},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key   string
		value string
	}{
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyLLMAPIKey, settings.LLM.APIKey},
		{keyVectorAPIKey, settings.VectorStore.APIKey},
	}
	for _, v := range secrets {
		if v.value == "" || s.fromEnv(v.key, v.value) {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
// Dimensions follow the model when it is a known one.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !providerIn(provider, domain.AllEmbeddingProviders()) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = switchedURL(provider, settings.Embedding.BaseURL)
	if apiKey != "" {
		settings.Embedding.APIKey = apiKey
	}
	if provider.RequiresAPIKey() && settings.Embedding.APIKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !providerIn(provider, domain.AllLLMProviders()) {
		return fmt.Errorf("%w: invalid LLM provider %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = switchedURL(provider, settings.LLM.BaseURL)
	if apiKey != "" {
		settings.LLM.APIKey = apiKey
	}
	if provider.RequiresAPIKey() && settings.LLM.APIKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	return s.Save(settings)
}

// Validate checks the current settings are well-formed and complete.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.check(settings)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// check runs struct-tag validation plus the provider readiness rules tags
// cannot express. Dimension agreement with the live model is checked by
// ValidateEmbeddingConfig.
func (s *SettingsService) check(settings *domain.AppSettings) error {
	var errs []error

	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%w: %s failed %q (value %v)",
				domain.ErrInvalidInput, strings.TrimPrefix(fe.Namespace(), "AppSettings."), fe.Tag(), fe.Value()))
		}
	}

	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: embedding provider %s is not configured (missing API key?)",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: LLM provider %s is not configured (missing API key?)",
			domain.ErrLLMUnavailable, settings.LLM.Provider))
	}
	return errors.Join(errs...)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getStringAllowEmpty distinguishes an explicit "" from a missing key.
func (s *SettingsService) getStringAllowEmpty(key, defaultVal string) string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration parses a duration string like "500ms" or "1m".
// Unparseable values fall back to the default.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) baseURL(key string, provider domain.AIProvider) string {
	return localURL(provider, s.configStore.GetString(key))
}

func (s *SettingsService) apiKey(key string, provider domain.AIProvider) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	for _, env := range providerEnvKeys[provider] {
		if val := s.env(env); val != "" {
			return val
		}
	}
	return ""
}

// fromEnv reports whether value for key was supplied by the environment
// rather than the config file.
func (s *SettingsService) fromEnv(key, value string) bool {
	if s.configStore.GetString(key) != "" {
		return false
	}
	envs := []string{qdrantEnvKey}
	for _, keys := range providerEnvKeys {
		envs = append(envs, keys...)
	}
	for _, env := range envs {
		if s.env(env) == value {
			return true
		}
	}
	return false
}

func (s *SettingsService) env(key string) string {
	if s.lookupEnv == nil {
		return ""
	}
	val, _ := s.lookupEnv(key)
	return val
}

func localURL(provider domain.AIProvider, current string) string {
	if provider.IsLocal() && current == "" {
		return defaultOllamaURL
	}
	return current
}

// switchedURL is the base URL after changing provider: local providers keep
// or default theirs, cloud providers use the SDK default.
func switchedURL(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	return localURL(provider, current)
}

func modelFor(provider domain.AIProvider, defaults map[domain.AIProvider]string, fallback string) string {
	if m, ok := defaults[provider]; ok {
		return m
	}
	return fallback
}

func dimensionsFor(model string, fallback int) int {
	if d, ok := domain.EmbeddingDimensions()[model]; ok {
		return d
	}
	return fallback
}

func providerIn(p domain.AIProvider, list []domain.AIProvider) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}
