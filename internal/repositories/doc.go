// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default,
// with one exception: registry snapshots are replaced outright so the (registry, term_id) uniqueness constraint stays satisfiable.
//
// Key Implementations:
//   - [SyncRunRepository] : Reconciliation run history with registry- and status-based queries
//   - [OutcomeRepository] : Per-term create outcomes recorded once per sync run
//   - [SnapshotRepository] : Registry term cache replaced wholesale on every fetch
//   - [History] : Facade wiring the three repositories into the engine's persistence contract
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #12) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
