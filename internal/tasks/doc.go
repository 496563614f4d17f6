// Package tasks orchestrates payment-term reconciliation with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines three operations:
//
//  1. [SyncEngine.Run] : Full workbook → registry sync
//     - Reads the source collection from the workbook
//     - Fetches the registry collection over the configured service
//     - Compares both sides and creates the missing terms
//     - Records the run, its outcomes, and a registry snapshot
//
//  2. [SyncEngine.Diff] : Read-only comparison
//     - Reads the source and fetches the registry
//     - Partitions every id into matching, mismatched, missing, or extra
//     - Never mutates the registry and records nothing
//
//  3. [SyncEngine.Export] : Registry → workbook export
//     - Fetches the registry collection
//     - Writes it in the source layout so exports round-trip through compare
//
// # Comparison
//
// [Compare] is a pure function over two ordered term collections. Duplicate ids
// on either side fail fast with [shared.DuplicateIDError] before any bucket is
// built. The four buckets partition the id-union of both inputs: no id is
// dropped and none lands in two buckets. [Plan] derives the creation sequence,
// which is exactly the OnlyInSource bucket in source order.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Run History
//
// The optional [RunHistory] interface enables run persistence during syncs
//
// History failures are logged and skipped (never disrupting a sync), and a nil
// history disables persistence entirely, which keeps the engine usable from
// tests and from commands that have no database.
//
// # Implementation
//
// [TermEngine] implements [SyncEngine] with dependencies on:
//   - [SourceReader] : workbook term loading (reader.ReadTerms via [ReaderFunc])
//   - [services.TermService] : the configured accounting registry
//   - [RunHistory] : optional persistence layer (repositories.History)
package tasks
