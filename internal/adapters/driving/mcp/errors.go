// Package mcp provides an MCP (Model Context Protocol) server adapter for ragvis.
// It lets AI assistants ask grounded questions, upload documents and inspect
// the corpus.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")

// errUnavailable is returned by tools whose port was not provided.
var errUnavailable = errors.New("mcp: service not available in this mode")
