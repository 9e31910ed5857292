package testutil

import (
	"sync"

	"github.com/roach88/txprop/internal/ir"
)

// FixedIDs returns predetermined transaction identifiers in order.
//
// This enables deterministic test execution: the same test with the same
// FixedIDs produces identical tokens, cookies and ledger rows.
//
// Thread-safety: FixedIDs is safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []ir.TxID
	idx int
}

// NewFixedIDs creates a generator that returns the parsed ids in order.
//
// Example:
//
//	gen := NewFixedIDs("00000000-0000-0000-0000-000000000001")
//	gen.Generate() // 00000000-0000-0000-0000-000000000001
//	gen.Generate() // panic: all ids exhausted
func NewFixedIDs(ids ...string) *FixedIDs {
	parsed := make([]ir.TxID, len(ids))
	for i, s := range ids {
		parsed[i] = ir.MustParseTxID(s)
	}
	return &FixedIDs{ids: parsed}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed. This is a fail-fast approach to catch
// a test that begins more transactions than it declared.
//
// Implements txn.IDGenerator.
func (g *FixedIDs) Generate() ir.TxID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
