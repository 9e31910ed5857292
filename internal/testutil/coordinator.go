package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/token"
	"github.com/roach88/txprop/internal/txn"
)

// FakeCoordinator is an in-memory txn.Coordinator that counts calls.
//
// Gate and Entered let a test hold reconstruction calls open to force
// concurrent decode attempts to overlap.
//
// Thread-safety: safe for concurrent use. Configure exported fields before
// handing the coordinator to the code under test.
type FakeCoordinator struct {
	KindID           uuid.UUID
	WhereaboutsBytes []byte

	// Gate, when non-nil, blocks every From* call until it is closed.
	Gate chan struct{}

	// Entered, when non-nil, receives the id of every From* call before it
	// waits on Gate.
	Entered chan ir.TxID

	PromoteErr     error
	ReconstructErr error

	promotes        atomic.Int64
	reconstructions atomic.Int64
	releases        atomic.Int64

	mu      sync.Mutex
	handles []*FakeHandle
}

// NewFakeCoordinator returns a coordinator of kind ir.PromoterTypeDTC.
func NewFakeCoordinator() *FakeCoordinator {
	return &FakeCoordinator{
		KindID:           ir.PromoterTypeDTC,
		WhereaboutsBytes: []byte("fake-coordinator"),
	}
}

// Kind implements txn.Coordinator.
func (c *FakeCoordinator) Kind() uuid.UUID {
	return c.KindID
}

// Promote implements txn.Coordinator.
func (c *FakeCoordinator) Promote(_ context.Context, id ir.TxID) (txn.Handle, error) {
	c.promotes.Add(1)
	if c.PromoteErr != nil {
		return nil, c.PromoteErr
	}
	return c.newHandle(id), nil
}

// FromExportCookie implements txn.Coordinator.
func (c *FakeCoordinator) FromExportCookie(ctx context.Context, _ []byte, id ir.TxID) (txn.Handle, error) {
	return c.reconstruct(ctx, id)
}

// FromPropagationToken implements txn.Coordinator.
func (c *FakeCoordinator) FromPropagationToken(ctx context.Context, tok []byte) (txn.Handle, error) {
	id, err := token.PeekTokenID(tok)
	if err != nil {
		return nil, err
	}
	return c.reconstruct(ctx, id)
}

// FromNative implements txn.Coordinator.
func (c *FakeCoordinator) FromNative(ctx context.Context, native txn.NativeTransaction) (txn.Handle, error) {
	var info txn.TransactionInfo
	if err := native.GetTransactionInfo(ctx, &info); err != nil {
		return nil, err
	}
	return c.reconstruct(ctx, info.UOW)
}

// Whereabouts implements txn.Coordinator.
func (c *FakeCoordinator) Whereabouts(context.Context) ([]byte, error) {
	out := make([]byte, len(c.WhereaboutsBytes))
	copy(out, c.WhereaboutsBytes)
	return out, nil
}

func (c *FakeCoordinator) reconstruct(ctx context.Context, id ir.TxID) (txn.Handle, error) {
	c.reconstructions.Add(1)
	if c.Entered != nil {
		c.Entered <- id
	}
	if c.Gate != nil {
		select {
		case <-c.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.ReconstructErr != nil {
		return nil, c.ReconstructErr
	}
	return c.newHandle(id), nil
}

func (c *FakeCoordinator) newHandle(id ir.TxID) *FakeHandle {
	h := &FakeHandle{id: id, coord: c}
	c.mu.Lock()
	c.handles = append(c.handles, h)
	c.mu.Unlock()
	return h
}

// Promotes returns the number of Promote calls.
func (c *FakeCoordinator) Promotes() int64 { return c.promotes.Load() }

// Reconstructions returns the number of From* calls.
func (c *FakeCoordinator) Reconstructions() int64 { return c.reconstructions.Load() }

// Releases returns the number of handle releases.
func (c *FakeCoordinator) Releases() int64 { return c.releases.Load() }

// Handles returns every handle issued so far.
func (c *FakeCoordinator) Handles() []*FakeHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*FakeHandle, len(c.handles))
	copy(out, c.handles)
	return out
}

// FakeHandle is the txn.Handle issued by FakeCoordinator.
type FakeHandle struct {
	id    ir.TxID
	coord *FakeCoordinator

	released  atomic.Int32
	committed atomic.Bool
	aborted   atomic.Bool
}

// ID implements txn.Handle.
func (h *FakeHandle) ID() ir.TxID { return h.id }

// ExportPayload implements txn.Handle.
func (h *FakeHandle) ExportPayload(_ context.Context, whereabouts []byte) ([]byte, error) {
	return []byte("export:" + h.id.String() + "@" + string(whereabouts)), nil
}

// TransmitterPayload implements txn.Handle.
func (h *FakeHandle) TransmitterPayload(context.Context) ([]byte, error) {
	return []byte("transmit:" + h.id.String()), nil
}

// Native implements txn.Handle.
func (h *FakeHandle) Native() txn.NativeTransaction { return &FakeNative{h: h} }

// Release implements txn.Handle.
func (h *FakeHandle) Release(context.Context) error {
	h.released.Add(1)
	h.coord.releases.Add(1)
	return nil
}

// ReleaseCount returns how many times Release was called.
func (h *FakeHandle) ReleaseCount() int { return int(h.released.Load()) }

// Committed reports whether the native surface committed.
func (h *FakeHandle) Committed() bool { return h.committed.Load() }

// Aborted reports whether the native surface aborted.
func (h *FakeHandle) Aborted() bool { return h.aborted.Load() }

// FakeNative is the txn.NativeTransaction of a FakeHandle.
type FakeNative struct {
	h *FakeHandle
}

// Commit implements txn.NativeTransaction.
func (n *FakeNative) Commit(context.Context, bool, txn.CommitType, uint32) error {
	n.h.committed.Store(true)
	return nil
}

// Abort implements txn.NativeTransaction.
func (n *FakeNative) Abort(context.Context, []byte, bool, bool) error {
	n.h.aborted.Store(true)
	return nil
}

// GetTransactionInfo implements txn.NativeTransaction.
func (n *FakeNative) GetTransactionInfo(_ context.Context, info *txn.TransactionInfo) error {
	info.UOW = n.h.id
	info.Description = "fake"
	return nil
}

// NativeFor returns a native surface for id that no coordinator has issued,
// as if it arrived from another process.
func NativeFor(id ir.TxID) txn.NativeTransaction {
	return &FakeNative{h: &FakeHandle{id: id, coord: &FakeCoordinator{}}}
}
