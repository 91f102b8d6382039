// Package cli provides the cobra command tree for ragvis.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
	dataDir   string
	envFile   string
)

// Services used by the commands. They are built on first use by wire, or
// injected directly by tests.
var (
	settingsService      driving.SettingsService
	ingestionService     driving.IngestionService
	answerService        driving.AnswerService
	visualizationService driving.VisualizationService
	documentService      driving.DocumentService
	reconcileSchedule    string
)

// needs is the command annotation that selects which services to build.
const needs = "needs"

const (
	needsSettings = "settings"
	needsCore     = "core"
)

var rootCmd = &cobra.Command{
	Use:   "ragvis",
	Short: "Ask questions about your documents and see where the answers live",
	Long: `ragvis ingests documents into a vector store, answers questions grounded
in the retrieved chunks, and projects every chunk into 3D so the corpus can
be explored visually.

Configuration lives in ~/.ragvis/config.toml. API keys may also come from the
environment or a .env file in the working directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.ragvis)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.ragvis/data)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading settings")
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer teardown()

	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("loading %s: %v", envFile, err)
		}
	}

	switch cmd.Annotations[needs] {
	case needsSettings:
		return wireSettings()
	case needsCore:
		return wireCore(cmd.Context())
	}
	return nil
}

// requires marks a command as needing the given service set.
func requires(set string, cmds ...*cobra.Command) {
	for _, c := range cmds {
		if c.Annotations == nil {
			c.Annotations = map[string]string{}
		}
		c.Annotations[needs] = set
	}
}
