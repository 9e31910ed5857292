package txn

import (
	"github.com/google/uuid"

	"github.com/roach88/txprop/internal/ir"
)

// IDGenerator produces identifiers for new local transactions.
type IDGenerator interface {
	Generate() ir.TxID
}

// UUIDv7Generator generates time-sortable UUIDv7 transaction identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, which keeps ledger
// rows and log lines roughly ordered by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 identifier.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() ir.TxID {
	return ir.TxID(uuid.Must(uuid.NewV7()))
}

// Begin creates an Active local transaction with an identifier from gen.
func Begin(gen IDGenerator, opts ...Option) *Transaction {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return New(gen.Generate(), opts...)
}
