package txn

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/txprop/internal/ir"
)

// Handle is a coordinator-side transaction.
//
// A Handle is owned by exactly one Transaction proxy and is never shared;
// the owner calls Release exactly once when it is disposed.
type Handle interface {
	// ID returns the distributed transaction identifier.
	ID() ir.TxID

	// ExportPayload returns the coordinator payload carried in an export
	// cookie addressed to the coordinator at whereabouts.
	ExportPayload(ctx context.Context, whereabouts []byte) ([]byte, error)

	// TransmitterPayload returns the coordinator payload carried in a
	// propagation token.
	TransmitterPayload(ctx context.Context) ([]byte, error)

	// Native returns the coordinator's control surface for this transaction.
	Native() NativeTransaction

	// Release gives the handle back to the coordinator.
	Release(ctx context.Context) error
}

// CommitType selects how a native commit is carried out.
type CommitType int32

const (
	// CommitSyncPhaseOne returns after phase one completes.
	CommitSyncPhaseOne CommitType = 1

	// CommitSync returns after the outcome is known. This is the default.
	CommitSync CommitType = 2

	// CommitAsync returns immediately.
	CommitAsync CommitType = 4
)

// TransactionInfo is filled in by NativeTransaction.GetTransactionInfo.
type TransactionInfo struct {
	// UOW is the unit-of-work identifier, equal to the transaction id.
	UOW ir.TxID

	IsolationLevel int32
	Flags          uint32
	Description    string
}

// NativeTransaction is the coordinator's fixed control surface for a
// promoted transaction: commit, abort and get-info. Implementations are thin
// adapters over a coordinator client.
type NativeTransaction interface {
	Commit(ctx context.Context, retaining bool, commitType CommitType, reserved uint32) error
	Abort(ctx context.Context, reason []byte, retaining bool, async bool) error
	GetTransactionInfo(ctx context.Context, info *TransactionInfo) error
}

// Coordinator is the external distributed transaction authority.
//
// Promote creates the coordinator-side transaction for a local one. The
// From* methods reconstruct a handle for a transaction that was propagated
// from elsewhere; they are called at most once per identifier per registry
// while a proxy for that identifier is alive.
type Coordinator interface {
	// Kind identifies the coordinator type; compared against a
	// transaction's promoter type before promotion.
	Kind() uuid.UUID

	Promote(ctx context.Context, id ir.TxID) (Handle, error)
	FromExportCookie(ctx context.Context, cookie []byte, id ir.TxID) (Handle, error)
	FromPropagationToken(ctx context.Context, token []byte) (Handle, error)
	FromNative(ctx context.Context, native NativeTransaction) (Handle, error)

	// Whereabouts returns the opaque locator bytes other processes use to
	// address export cookies to this coordinator.
	Whereabouts(ctx context.Context) ([]byte, error)
}
