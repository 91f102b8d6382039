package driven

import "context"

// LLMService generates answers from the retrieved context. Adapters report
// failures as *domain.GenerationError so the answer pipeline can tell a
// transient outage from a rejected request.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
	ModelName() string
	// Ping sends the cheapest request the provider accepts.
	Ping(ctx context.Context) error
	Close() error
}

// GenerateOptions tunes a single-prompt completion. Zero values fall back
// to the adapter's defaults.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn; Role is RoleSystem, RoleUser or RoleAssistant.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions tunes a chat completion.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}
