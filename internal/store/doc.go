// ABOUTME: Package store is the DuckDB/MotherDuck persistence layer for envelopes
// ABOUTME: Handles connection modes, CRUD for envelopes/transactions, and cloud sync

// Package store manages all interaction with the DuckDB database backing the
// budget tracker.
//
// A DB can run in one of three modes:
//
//   - local: a DuckDB file (or in-memory database) on this machine
//   - cloud: a MotherDuck-hosted database, reached via an md: DSN
//   - hybrid: local file as primary, with a reachable MotherDuck copy that
//     can be mirrored on demand via SyncToCloud/SyncFromCloud
//
// Cloud-side failures during connection establishment degrade gracefully: a
// cloud or hybrid DB that cannot reach MotherDuck falls back to local-only
// operation and records the downgrade in its ConnectionState. Only a failure
// to open the local database is fatal.
//
// Sync is last-writer-wins via idempotent upserts and carries no cross-table
// transactionality: a crash mid-sync can leave a partial copy, and
// bidirectional edits to the same row between a push and a later pull are
// silently overwritten. This is a known, accepted limitation.
//
// The DB serializes access to its connection handle internally; callers may
// share one DB across goroutines.
package store
