// Package domain defines the core business entities for ragvis.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A registered upload and its ingestion status
//   - Chunk: An embedded, independently retrievable span of a document
//   - IngestionJob: The step-wise state of one ingestion attempt
//   - QueryContext: The transient state of one question/answer request
//   - ProjectionBasis: The 3D reduction fit over stored embeddings
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
