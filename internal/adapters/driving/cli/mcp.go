package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SanjayDoppalapudi/RAG/internal/adapters/driving/mcp"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
	"github.com/SanjayDoppalapudi/RAG/internal/core/services"
)

// defaultServePort is the HTTP port used by serve.
const defaultServePort = 8080

// newScheduler builds the reconcile scheduler. Tests replace it.
var newScheduler = func(schedule string, docs driving.DocumentService) (driving.Scheduler, error) {
	return services.NewScheduler(schedule, docs)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default, for Claude Desktop)
  ragvis mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  ragvis mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "ragvis": {
        "command": "/path/to/ragvis",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run ragvis as a long-lived service",
	Long: `Resumes ingestion jobs left unfinished by earlier runs, runs the reconcile
pass on the reconcile.schedule setting, and serves the MCP tools over HTTP.

Stop with Ctrl+C. Running jobs are paused and resume on the next start.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	serveCmd.Flags().IntP("port", "p", defaultServePort, "HTTP port for the MCP endpoint")
	mcpCmd.AddCommand(mcpServeCmd)
	requires(needsCore, mcpServeCmd, serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(serveCmd)
}

func newMCPServer() (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Answer:        answerService,
		Ingestion:     ingestionService,
		Document:      documentService,
		Visualization: visualizationService,
	})
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := newMCPServer()
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil || documentService == nil {
		return errors.New("services not configured")
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if port <= 0 {
		return fmt.Errorf("invalid port %d", port)
	}
	ctx := cmd.Context()

	resumed, err := ingestionService.Resume(ctx)
	if err != nil {
		return fmt.Errorf("resuming jobs: %w", err)
	}
	if resumed > 0 {
		cmd.Printf("Resumed %d unfinished ingestion jobs.\n", resumed)
	}

	scheduler, err := newScheduler(reconcileSchedule, documentService)
	if err != nil {
		return err
	}
	server, err := newMCPServer()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := scheduler.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer scheduler.Stop() //nolint:errcheck // stop on server exit
		addr := fmt.Sprintf(":%d", port)
		cmd.Printf("Serving MCP on http://localhost%s (reconcile: %s)\n", addr, scheduleLabel(reconcileSchedule))
		return server.RunHTTP(gctx, addr)
	})
	return g.Wait()
}

func scheduleLabel(schedule string) string {
	if schedule == "" {
		return "disabled"
	}
	return schedule
}
