package driving

import "github.com/SanjayDoppalapudi/RAG/internal/core/domain"

// SettingsService reads and edits config.toml for the settings commands
// and for startup wiring.
type SettingsService interface {
	// Get returns stored settings merged over the defaults, with API keys
	// from the environment filling any that are unset.
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings

	// SetEmbeddingProvider and SetLLMProvider keep the stored API key when
	// apiKey is empty.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate runs struct validation without network access.
	Validate() error
	// ValidateEmbeddingConfig and ValidateLLMConfig ping the provider.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
