// Package parsers provides the document parsing collaborator: a registry
// of format-specific parsers that turn uploaded bytes into plain text with
// layout boundaries.
//
// Parsers are selected by MIME type first, then by file extension, with
// the highest priority winning. The registry rejects documents that yield
// no text, so a scanned PDF fails fast with a ParseError instead of
// producing an empty document.
package parsers
