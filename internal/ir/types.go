package ir

import (
	"fmt"

	"github.com/google/uuid"
)

// TxIDLen is the encoded length of a TxID.
const TxIDLen = 16

// TxID is the 128-bit globally unique identifier of a distributed transaction.
// It is the identity key for proxy deduplication and is immutable once assigned.
type TxID uuid.UUID

// NilTxID is the zero identifier. It never names a real transaction.
var NilTxID TxID

// PromoterTypeDTC identifies transactions that promote to a DTC-style external
// coordinator. Callers compare a transaction's promoter type against this value
// to decide whether they can enlist with that coordinator kind.
var PromoterTypeDTC = uuid.MustParse("14229753-ffe1-428d-82b7-df73045cb8da")

// NewTxID returns a time-sortable (UUIDv7) identifier.
func NewTxID() (TxID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return NilTxID, fmt.Errorf("new tx id: %w", err)
	}
	return TxID(id), nil
}

// ParseTxID parses the canonical hyphenated form (or any form uuid.Parse accepts).
func ParseTxID(s string) (TxID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilTxID, fmt.Errorf("parse tx id %q: %w", s, err)
	}
	return TxID(id), nil
}

// MustParseTxID is like ParseTxID but panics on error. Intended for tests and constants.
func MustParseTxID(s string) TxID {
	id, err := ParseTxID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// TxIDFromBytes copies a 16-byte window into a TxID.
func TxIDFromBytes(b []byte) (TxID, error) {
	if len(b) != TxIDLen {
		return NilTxID, fmt.Errorf("tx id must be %d bytes, got %d", TxIDLen, len(b))
	}
	var id TxID
	copy(id[:], b)
	return id, nil
}

// String returns the hyphenated UUID form.
func (id TxID) String() string {
	return uuid.UUID(id).String()
}

// Bytes returns a fresh copy of the 16 identifier bytes.
func (id TxID) Bytes() []byte {
	out := make([]byte, TxIDLen)
	copy(out, id[:])
	return out
}

// MarshalText implements encoding.TextMarshaler using the hyphenated form.
func (id TxID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *TxID) UnmarshalText(b []byte) error {
	parsed, err := ParseTxID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsZero reports whether id is NilTxID.
func (id TxID) IsZero() bool {
	return id == NilTxID
}

// State is the lifecycle state of a local transaction proxy.
//
//	Active -> Promoted -> Completed
//	any    -> Disposed
type State int

const (
	// StateActive is a process-local transaction not yet known to a coordinator.
	StateActive State = iota

	// StatePromoted is controlled by an external coordinator through an owned handle.
	StatePromoted

	// StateCompleted has finished; no further promotion or payload generation.
	StateCompleted

	// StateDisposed has released its handle and left the registry.
	StateDisposed
)

// String returns the lower-case state name used in logs and CLI output.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePromoted:
		return "promoted"
	case StateCompleted:
		return "completed"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further promotion is permitted in this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateDisposed
}
