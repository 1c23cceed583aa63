// Package sqlite provides the SQLite-backed implementation of the driven
// storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. A single database connection backs:
//
//   - DocumentStore: documents and their pages
//   - StatsStore: the search counter
//   - SchedulerStore: scheduled task state and history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Search
//
// Substring matching uses a registered fold_contains SQL function so that
// case folding is Unicode aware, matching the in-memory store.
//
// # Data Location
//
// By default, the database is stored at ~/.docscan/docscan.db
//
// # Thread Safety
//
// All operations are thread-safe. Writes that touch a document and its
// pages run in a single transaction; SQLite runs in WAL mode.
package sqlite
