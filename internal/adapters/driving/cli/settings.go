package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

var (
	settingsProvider string
	settingsModel    string
	settingsNoCheck  bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the vector store and pipeline tuning.

Other values are edited directly in ~/.ragvis/config.toml.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider. Without --provider a menu is shown.
Changing the embedding model changes the vector dimension, so documents
ingested with the previous model must be re-ingested.`,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used to generate answers. Without --provider a menu is shown.`,
	RunE:  runSettingsLLM,
}

func init() {
	for _, c := range []*cobra.Command{settingsEmbeddingCmd, settingsLLMCmd} {
		c.Flags().StringVar(&settingsProvider, "provider", "", "provider name")
		c.Flags().StringVar(&settingsModel, "model", "", "model name (default: provider default)")
		c.Flags().BoolVar(&settingsNoCheck, "no-check", false, "skip the connectivity check")
	}
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	requires(needsSettings, settingsCmd, settingsShowCmd, settingsEmbeddingCmd, settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider:   %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model:      %s\n", settings.Embedding.Model)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	printEndpoint(cmd, settings.Embedding.Provider, settings.Embedding.BaseURL, settings.Embedding.APIKey)
	cmd.Printf("  Status:     %s\n", configuredLabel(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider:   %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model:      %s\n", settings.LLM.Model)
	printEndpoint(cmd, settings.LLM.Provider, settings.LLM.BaseURL, settings.LLM.APIKey)
	cmd.Printf("  Status:     %s\n", configuredLabel(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Vector Store]")
	cmd.Printf("  Backend:    %s\n", settings.VectorStore.Backend)
	cmd.Printf("  Collection: %s\n", settings.VectorStore.Collection)
	if settings.VectorStore.Backend == domain.VectorBackendQdrant {
		cmd.Printf("  URL:        %s\n", settings.VectorStore.URL)
	}
	cmd.Println()

	cmd.Println("[Ingestion]")
	cmd.Printf("  Chunk:      %d tokens, %.0f%% overlap\n",
		settings.Ingestion.ChunkTokens, settings.Ingestion.OverlapFraction*100)
	cmd.Printf("  Embedding:  batch %d, %d concurrent, %.1f req/s\n",
		settings.Ingestion.EmbedBatchSize, settings.Ingestion.EmbedConcurrency, settings.Ingestion.EmbedRPS)
	cmd.Printf("  Retries:    %d attempts, %s..%s backoff\n",
		settings.Ingestion.MaxAttempts, settings.Ingestion.InitialBackoff, settings.Ingestion.MaxBackoff)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K:      %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Threshold:  %.2f\n", settings.Retrieval.ScoreThreshold)
	cmd.Printf("  Boost:      %t\n", settings.Retrieval.SourceBoost)
	cmd.Println()

	cmd.Println("[Reconcile]")
	cmd.Printf("  Schedule:   %s\n", scheduleLabel(settings.Reconcile.Schedule))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'ragvis settings embedding' or 'ragvis settings llm' to fix provider settings.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func printEndpoint(cmd *cobra.Command, provider domain.AIProvider, baseURL, apiKey string) {
	if provider.IsLocal() || baseURL != "" {
		cmd.Printf("  Base URL:   %s\n", baseURL)
	}
	if !provider.RequiresAPIKey() {
		return
	}
	if apiKey == "" {
		cmd.Println("  API Key:    (not set)")
		return
	}
	cmd.Printf("  API Key:    %s\n", maskAPIKey(apiKey))
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider, model, apiKey, err := chooseProvider(cmd, "Embedding", domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())
	if err != nil {
		return err
	}
	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if !settingsNoCheck {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateEmbeddingConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider, model, apiKey, err := chooseProvider(cmd, "LLM", domain.AllLLMProviders(), domain.DefaultLLMModels())
	if err != nil {
		return err
	}
	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	if !settingsNoCheck {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateLLMConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("LLM configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

// chooseProvider resolves provider, model and API key from flags, falling
// back to prompts on the command's input. An empty API key keeps the one
// already stored or supplied by the environment.
func chooseProvider(
	cmd *cobra.Command,
	kind string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) (domain.AIProvider, string, string, error) {
	reader := bufio.NewReader(cmd.InOrStdin())

	var provider domain.AIProvider
	if settingsProvider != "" {
		provider = domain.AIProvider(strings.ToLower(settingsProvider))
		if !providerIn(provider, providers) {
			return "", "", "", fmt.Errorf("unsupported %s provider %q", strings.ToLower(kind), settingsProvider)
		}
	} else {
		cmd.Printf("Select %s Provider\n", kind)
		for i, p := range providers {
			cmd.Printf("  %d. %s\n", i+1, p.Description())
		}
		cmd.Print("\nEnter choice [1]: ")
		provider = providers[parseChoice(readLine(reader), len(providers), 1)-1]
	}

	model := settingsModel
	if model == "" {
		model = defaults[provider]
		if settingsProvider == "" {
			cmd.Printf("Enter model name [%s]: ", model)
			if input := readLine(reader); input != "" {
				model = input
			}
		}
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key (blank keeps current): ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}
	return provider, model, apiKey, nil
}

func providerIn(p domain.AIProvider, list []domain.AIProvider) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, fallback *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(fallback)
}

// maskAPIKey masks an API key for display, showing only first and last 4 chars.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
