package mcp

import (
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer answers questions from ingested content.
	Answer driving.AnswerService

	// Ingestion uploads documents and reports job progress.
	Ingestion driving.IngestionService

	// Document lists, deletes and reconciles documents.
	Document driving.DocumentService

	// Visualization projects the corpus into 3D.
	Visualization driving.VisualizationService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Answer == nil {
		return ErrMissingAnswerService
	}
	// The remaining ports are optional; their tools report unavailability.
	return nil
}
