// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Parser / ParserRegistry: Extracts plain text from uploaded bytes
//   - Chunker: Splits parsed text into overlapping token windows
//   - EmbeddingService: Maps text to fixed-dimension vectors
//   - VectorStore: Chunk store over a vector-search collaborator
//   - DocumentRegistry: Source registry of documents and their status
//   - JobStore: Durable ingestion job state
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, queries that find context
//     fail with ErrGenerationUnavailable wrapping ErrLLMUnavailable.
//   - PromptStore: Customisable prompt templates. Defaults are built in.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or parser package
package driven
