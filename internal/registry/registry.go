package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"weak"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/txn"
)

// ErrDuplicate is returned by Register when a different live proxy already
// holds the identifier.
var ErrDuplicate = errors.New("another live proxy holds this transaction id")

// Factory builds a fresh proxy for an identifier the registry does not hold.
// It typically asks the coordinator to reconstruct a handle and wraps it with
// txn.NewPromoted.
type Factory func(ctx context.Context) (*txn.Transaction, error)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registry events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

type entry struct {
	ptr weak.Pointer[txn.Transaction]
	gen uint64
}

type cleanupKey struct {
	id  ir.TxID
	gen uint64
}

// Registry is the process-local identifier-to-proxy map.
//
// Thread-safety: all methods are safe for concurrent use. The registry never
// takes a transaction's own lock, so Register may be called by a Promoter
// that is holding it.
type Registry struct {
	mu      sync.Mutex
	entries map[ir.TxID]entry
	gen     uint64

	flights singleflight.Group
	logger  *slog.Logger
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[ir.TxID]entry),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Find returns the live proxy for id, or nil if there is none.
// A proxy that has been disposed or collected is treated as absent.
func (r *Registry) Find(id ir.TxID) *txn.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveLocked(id)
}

// liveLocked returns the live proxy for id and drops a dead entry.
// Caller must hold r.mu.
func (r *Registry) liveLocked(id ir.TxID) *txn.Transaction {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	tx := e.ptr.Value()
	if tx == nil || tx.IsDisposed() {
		delete(r.entries, id)
		return nil
	}
	return tx
}

// Register records tx under its identifier.
//
// Registering the proxy that already holds the id is a no-op. Registering a
// different proxy while one is live fails with ErrDuplicate. A disposed
// proxy is rejected with DISPOSED.
func (r *Registry) Register(tx *txn.Transaction) error {
	if tx == nil {
		return ir.NewNullArgumentError("register", "transaction")
	}
	id := tx.ID()

	r.mu.Lock()
	if cur := r.liveLocked(id); cur != nil {
		r.mu.Unlock()
		if cur == tx {
			return nil
		}
		return fmt.Errorf("register %s: %w", id, ErrDuplicate)
	}
	if tx.IsDisposed() {
		r.mu.Unlock()
		return ir.NewDisposedError("register", id)
	}
	r.gen++
	gen := r.gen
	r.entries[id] = entry{ptr: weak.Make(tx), gen: gen}
	r.mu.Unlock()

	if !tx.OnDispose(func() { r.remove(id, gen) }) {
		r.remove(id, gen)
		return ir.NewDisposedError("register", id)
	}
	runtime.AddCleanup(tx, func(k cleanupKey) { r.remove(k.id, k.gen) }, cleanupKey{id: id, gen: gen})

	r.logger.Debug("proxy registered", "tx", id, "gen", gen)
	return nil
}

// remove deletes the entry for id only if it still carries gen.
func (r *Registry) remove(id ir.TxID, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && e.gen == gen {
		delete(r.entries, id)
		r.logger.Debug("proxy removed", "tx", id, "gen", gen)
	}
}

// Remove deletes whatever entry holds id. The proxy itself is not disposed.
func (r *Registry) Remove(id ir.TxID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// FindOrCreate returns the live proxy for id, invoking factory to build one
// if there is none.
//
// At most one factory runs per id at a time; concurrent callers wait for it
// and receive the same proxy. The in-flight factory sees the values of the
// starting caller's context but not its cancellation, so one caller giving
// up does not fail the others. If a different proxy was registered directly
// while the factory ran, the fresh proxy is disposed (releasing its handle)
// and the registered one is returned.
//
// Factory errors are returned unchanged.
func (r *Registry) FindOrCreate(ctx context.Context, id ir.TxID, factory Factory) (*txn.Transaction, error) {
	if factory == nil {
		return nil, ir.NewNullArgumentError("find or create", "factory")
	}
	if tx := r.Find(id); tx != nil {
		return tx, nil
	}

	v, err, shared := r.flights.Do(id.String(), func() (any, error) {
		// Another flight may have finished between Find and Do.
		if tx := r.Find(id); tx != nil {
			return tx, nil
		}
		return r.create(context.WithoutCancel(ctx), id, factory)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("shared reconstruction", "tx", id)
	}
	return v.(*txn.Transaction), nil
}

func (r *Registry) create(ctx context.Context, id ir.TxID, factory Factory) (*txn.Transaction, error) {
	fresh, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, fmt.Errorf("find or create %s: factory returned no transaction", id)
	}
	if fresh.ID() != id {
		r.discard(ctx, fresh)
		return nil, fmt.Errorf("find or create %s: factory built transaction %s", id, fresh.ID())
	}

	for {
		err := r.Register(fresh)
		if err == nil {
			return fresh, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			r.discard(ctx, fresh)
			return nil, err
		}
		if cur := r.Find(id); cur != nil {
			r.logger.Debug("reconstruction lost to registered proxy", "tx", id)
			r.discard(ctx, fresh)
			return cur, nil
		}
		// The holder was disposed between Register and Find.
	}
}

func (r *Registry) discard(ctx context.Context, tx *txn.Transaction) {
	if err := tx.Dispose(ctx); err != nil {
		r.logger.Warn("release of discarded proxy failed", "tx", tx.ID(), "error", err)
	}
}

// Len returns the number of live proxies.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id := range r.entries {
		if r.liveLocked(id) != nil {
			n++
		}
	}
	return n
}

// IDs returns the identifiers of all live proxies in string order.
func (r *Registry) IDs() []ir.TxID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]ir.TxID, 0, len(r.entries))
	for id := range r.entries {
		if r.liveLocked(id) != nil {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b ir.TxID) int {
		return slices.Compare(a[:], b[:])
	})
	return ids
}
