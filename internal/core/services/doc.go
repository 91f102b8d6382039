// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion pipeline, retrieval-answer pipeline, projector and
// document lifecycle live here. Services depend only on port interfaces;
// concrete stores and providers are wired by the CLI.
package services
