// Package sqlite provides a SQLite-backed implementation of the driven
// storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. A single database connection backs three stores:
//
//   - DocumentRegistry: document status and chunk counts
//   - JobStore: resumable ingestion job state
//   - VectorStore: chunk vectors with brute-force cosine search
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files, and applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.ragvis/data/ragvis.db
//
// # Thread Safety
//
// All operations are thread-safe. The store relies on SQLite's locking in
// WAL mode.
package sqlite
