// Package store provides the SQLite ledger behind the reference coordinator.
//
// Two tables:
//   - transactions: one row per distributed transaction, keyed by the raw
//     16-byte identifier, carrying its status and the whereabouts of the
//     coordinator that owns it
//   - tx_events: an append-only journal of coordinator events, keyed by a
//     content-addressed id (see ir.EventID)
//
// # Ordering
//
// All ordering uses the seq column (logical clock), never timestamps.
// Queries order by seq ASC, id ASC COLLATE BINARY so listings are identical
// across restarts.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Event details are stored as canonical JSON (ir.MarshalCanonical).
package store
