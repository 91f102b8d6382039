// Package driving holds the interfaces the CLI and the MCP server call:
// ingestion, answering, visualization, document management and settings.
// internal/core/services implements them.
package driving
