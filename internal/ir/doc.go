// Package ir provides the shared value types for transaction propagation.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the identifier, state
// and error taxonomy at the bottom of the dependency graph.
//
// Key design constraints:
//   - TxID is always the raw 16 UUID bytes in RFC 4122 order on the wire
//   - Logical clocks (seq) only, never wall-clock timestamps, in the ledger
//   - Canonical JSON (RFC 8785, NFC strings) for every hashed or compared payload
package ir
