package txn

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/txprop/internal/ir"
)

// orphanReleaseTimeout bounds the release of a handle whose proxy was
// collected without being disposed.
const orphanReleaseTimeout = 30 * time.Second

// Option configures a Transaction.
type Option func(*Transaction)

// WithPromoterType sets the coordinator kind this transaction promotes to.
// Defaults to ir.PromoterTypeDTC.
func WithPromoterType(t uuid.UUID) Option {
	return func(tx *Transaction) {
		tx.promoterType = t
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(tx *Transaction) {
		if l != nil {
			tx.logger = l
		}
	}
}

// Transaction is the local proxy for one transaction identity.
//
// Thread-safety: all methods are safe for concurrent use. State reads are
// lock-free so the registry can inspect a proxy while its owner holds the
// transaction lock during promotion.
type Transaction struct {
	id           ir.TxID
	promoterType uuid.UUID
	logger       *slog.Logger

	// mu serializes state transitions and guards handle and orphan.
	mu     sync.Mutex
	state  atomic.Int32
	handle Handle
	orphan runtime.Cleanup

	hookMu    sync.Mutex
	hooks     []func()
	hooksDone bool
}

// New creates an Active local transaction.
func New(id ir.TxID, opts ...Option) *Transaction {
	tx := &Transaction{
		id:           id,
		promoterType: ir.PromoterTypeDTC,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(tx)
	}
	tx.state.Store(int32(ir.StateActive))
	return tx
}

// NewPromoted creates a Promoted proxy that owns h.
// Used when a handle was reconstructed from an inbound cookie, token or
// native transaction.
func NewPromoted(id ir.TxID, h Handle, opts ...Option) (*Transaction, error) {
	if h == nil {
		return nil, ir.NewNullArgumentError("new promoted transaction", "handle")
	}
	if h.ID() != id {
		return nil, fmt.Errorf("new promoted transaction: handle id %s does not match %s", h.ID(), id)
	}
	tx := New(id, opts...)
	tx.attach(h)
	return tx, nil
}

// orphanedHandle is what the collection cleanup of a proxy sees. It must not
// reference the proxy, or the proxy would never become unreachable.
type orphanedHandle struct {
	id     ir.TxID
	h      Handle
	logger *slog.Logger
}

func releaseOrphan(o orphanedHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), orphanReleaseTimeout)
	defer cancel()
	if err := o.h.Release(ctx); err != nil {
		o.logger.Warn("release of collected transaction failed", "tx", o.id, "error", err)
		return
	}
	o.logger.Debug("released handle of collected transaction", "tx", o.id)
}

// attach makes tx Promoted and the owner of h. If tx is garbage collected
// before Dispose, h is released by a runtime cleanup.
// Caller must hold tx.mu or be the only holder of tx.
func (tx *Transaction) attach(h Handle) {
	tx.handle = h
	tx.state.Store(int32(ir.StatePromoted))
	tx.orphan = runtime.AddCleanup(tx, releaseOrphan, orphanedHandle{id: tx.id, h: h, logger: tx.logger})
}

// detach drops the owned handle and cancels its collection cleanup.
// Caller must hold tx.mu.
func (tx *Transaction) detach() Handle {
	h := tx.handle
	if h != nil {
		tx.orphan.Stop()
	}
	tx.handle = nil
	tx.orphan = runtime.Cleanup{}
	return h
}

// ID returns the transaction identifier.
func (tx *Transaction) ID() ir.TxID {
	return tx.id
}

// PromoterType returns the coordinator kind this transaction promotes to.
func (tx *Transaction) PromoterType() uuid.UUID {
	return tx.promoterType
}

// State returns the current lifecycle state.
func (tx *Transaction) State() ir.State {
	return ir.State(tx.state.Load())
}

// IsDisposed reports whether Dispose has been called.
func (tx *Transaction) IsDisposed() bool {
	return tx.State() == ir.StateDisposed
}

// IsCompleted reports whether the transaction completed.
func (tx *Transaction) IsCompleted() bool {
	return tx.State() == ir.StateCompleted
}

// Complete marks the transaction finished. Completing twice is a no-op.
// The owned handle, if any, stays attached until Dispose.
func (tx *Transaction) Complete() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	switch tx.State() {
	case ir.StateDisposed:
		return ir.NewDisposedError("complete", tx.id)
	case ir.StateCompleted:
		return nil
	}
	tx.state.Store(int32(ir.StateCompleted))
	tx.logger.Info("transaction completed", "tx", tx.id)
	return nil
}

// Dispose moves the transaction to Disposed from any state, releases the
// owned handle exactly once and runs dispose hooks (which remove the proxy
// from its registry). Disposing twice is a no-op.
func (tx *Transaction) Dispose(ctx context.Context) error {
	tx.mu.Lock()
	if tx.State() == ir.StateDisposed {
		tx.mu.Unlock()
		return nil
	}
	tx.state.Store(int32(ir.StateDisposed))
	h := tx.detach()
	tx.mu.Unlock()

	tx.hookMu.Lock()
	hooks := tx.hooks
	tx.hooks = nil
	tx.hooksDone = true
	tx.hookMu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	tx.logger.Debug("transaction disposed", "tx", tx.id, "had_handle", h != nil)

	if h != nil {
		if err := h.Release(ctx); err != nil {
			return fmt.Errorf("dispose %s: release handle: %w", tx.id, err)
		}
	}
	return nil
}

// OnDispose registers fn to run once when the transaction is disposed.
// Returns false, without registering, if the transaction is already disposed.
func (tx *Transaction) OnDispose(fn func()) bool {
	tx.hookMu.Lock()
	defer tx.hookMu.Unlock()
	if tx.hooksDone {
		return false
	}
	tx.hooks = append(tx.hooks, fn)
	return true
}

// String returns "tx <id> (<state>)" for logs.
func (tx *Transaction) String() string {
	return fmt.Sprintf("tx %s (%s)", tx.id, tx.State())
}

// checkUsable returns the taxonomy error for a terminal state.
// Caller must hold tx.mu.
func (tx *Transaction) checkUsable(op string) error {
	switch tx.State() {
	case ir.StateDisposed:
		return ir.NewDisposedError(op, tx.id)
	case ir.StateCompleted:
		return ir.NewCompletedError(op, tx.id)
	}
	return nil
}
