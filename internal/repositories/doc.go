// Package repositories implements SQLite persistence for qmc's stored entities.
//
// Key Implementations:
//   - [LoginAttemptRepository] : login history written as attempts progress and listed by `qmc history`
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
