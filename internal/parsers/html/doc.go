// Package html provides a Parser implementation for HTML documents.
// It extracts readable text content from HTML, dropping scripts, styles
// and markup, and starts a layout boundary at every heading.
package html
