package coordinator

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/store"
	"github.com/roach88/txprop/internal/token"
	"github.com/roach88/txprop/internal/txn"
)

// IsolationSerializable is the isolation level reported by GetTransactionInfo.
const IsolationSerializable int32 = 0x00100000

// Origins recorded on ledger rows.
const (
	OriginLocal  = "local"
	OriginCookie = "cookie"
	OriginToken  = "token"
	OriginNative = "native"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithName sets the coordinator name written into payloads.
func WithName(name string) Option {
	return func(c *Coordinator) {
		if name != "" {
			c.name = name
		}
	}
}

// WithAddress sets the address encoded into this coordinator's whereabouts.
func WithAddress(addr string) Option {
	return func(c *Coordinator) {
		c.addr = addr
	}
}

// WithClock replaces the ledger clock. Tests pass a resettable clock.
func WithClock(clock Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger for coordinator events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// Coordinator is a txn.Coordinator backed by a SQLite ledger.
//
// Thread-safety: safe for concurrent use. The ledger serializes writes.
type Coordinator struct {
	store  *store.Store
	name   string
	addr   string
	clock  Clock
	logger *slog.Logger
}

var _ txn.Coordinator = (*Coordinator)(nil)

// New creates a coordinator over st. Without WithClock the clock resumes
// after the highest seq already in the ledger.
func New(ctx context.Context, st *store.Store, opts ...Option) (*Coordinator, error) {
	if st == nil {
		return nil, ir.NewNullArgumentError("new coordinator", "store")
	}
	c := &Coordinator{
		store:  st,
		name:   "txprop",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		seq, err := st.MaxSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("new coordinator: %w", err)
		}
		c.clock = NewClockAt(seq)
	}
	return c, nil
}

// Name returns the coordinator name written into payloads.
func (c *Coordinator) Name() string {
	return c.name
}

// Kind implements txn.Coordinator.
func (c *Coordinator) Kind() uuid.UUID {
	return ir.PromoterTypeDTC
}

// Whereabouts implements txn.Coordinator.
func (c *Coordinator) Whereabouts(context.Context) ([]byte, error) {
	return EncodeWhereabouts(c.addr), nil
}

// Promote implements txn.Coordinator. It records a new active transaction
// together with its promoted event, so a failed promotion leaves no row
// behind. Promoting an id the ledger already holds is an error.
func (c *Coordinator) Promote(ctx context.Context, id ir.TxID) (txn.Handle, error) {
	rec := ir.TxRecord{
		ID:          id,
		Status:      ir.StatusActive,
		Origin:      OriginLocal,
		Whereabouts: EncodeWhereabouts(c.addr),
		Seq:         c.clock.Next(),
	}
	ev, err := ir.NewTxEvent(id, ir.EventPromoted, ir.Object{"origin": OriginLocal}, c.clock.Next())
	if err != nil {
		return nil, fmt.Errorf("promote %s: %w", id, err)
	}
	inserted, err := c.store.CreateTransactionWithEvent(ctx, rec, ev)
	if err != nil {
		return nil, fmt.Errorf("promote %s: %w", id, err)
	}
	if !inserted {
		return nil, fmt.Errorf("promote %s: transaction already exists in ledger", id)
	}
	c.logger.Info("transaction promoted", "tx", id, "coordinator", c.name)
	return &handle{c: c, id: id}, nil
}

// FromExportCookie implements txn.Coordinator. The cookie must carry this
// package's self-describing whereabouts followed by an export payload.
func (c *Coordinator) FromExportCookie(ctx context.Context, cookie []byte, id ir.TxID) (txn.Handle, error) {
	if _, err := token.PeekCookieID(cookie); err != nil {
		return nil, err
	}
	n, err := WhereaboutsLen(cookie[token.CookieMinLen:])
	if err != nil {
		return nil, err
	}
	ck, err := token.DecodeCookie(cookie, n)
	if err != nil {
		return nil, err
	}
	if ck.ID != id {
		return nil, fmt.Errorf("from export cookie: cookie names %s, expected %s", ck.ID, id)
	}
	if err := c.checkPayload("from export cookie", ck.Payload, id); err != nil {
		return nil, err
	}
	addr, _, _ := DecodeWhereabouts(ck.Whereabouts)
	return c.reconstruct(ctx, id, OriginCookie, ck.Whereabouts, ir.Object{"address": addr})
}

// FromPropagationToken implements txn.Coordinator.
func (c *Coordinator) FromPropagationToken(ctx context.Context, tok []byte) (txn.Handle, error) {
	pt, err := token.DecodeToken(tok)
	if err != nil {
		return nil, err
	}
	if err := c.checkPayload("from propagation token", pt.Payload, pt.ID); err != nil {
		return nil, err
	}
	return c.reconstruct(ctx, pt.ID, OriginToken, EncodeWhereabouts(c.addr), ir.Object{
		"version": pt.Version.String(),
	})
}

// FromNative implements txn.Coordinator. Any native surface is accepted;
// its transaction info supplies the identifier.
func (c *Coordinator) FromNative(ctx context.Context, native txn.NativeTransaction) (txn.Handle, error) {
	if native == nil {
		return nil, ir.NewNullArgumentError("from native", "native")
	}
	var info txn.TransactionInfo
	if err := native.GetTransactionInfo(ctx, &info); err != nil {
		return nil, err
	}
	return c.reconstruct(ctx, info.UOW, OriginNative, EncodeWhereabouts(c.addr), nil)
}

// reconstruct records (or finds) the ledger row for an inbound transaction
// and returns a fresh handle for it. Finished transactions are rejected.
func (c *Coordinator) reconstruct(ctx context.Context, id ir.TxID, origin string, where []byte, detail ir.Object) (txn.Handle, error) {
	if _, err := c.store.CreateTransaction(ctx, ir.TxRecord{
		ID:          id,
		Status:      ir.StatusActive,
		Origin:      origin,
		Whereabouts: where,
		Seq:         c.clock.Next(),
	}); err != nil {
		return nil, fmt.Errorf("reconstruct %s: %w", id, err)
	}
	rec, err := c.store.ReadTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s: %w", id, err)
	}
	if rec.Status != ir.StatusActive {
		return nil, ir.NewCompletedError("reconstruct", id)
	}

	if detail == nil {
		detail = ir.Object{}
	}
	detail["origin"] = origin
	if err := c.journal(ctx, id, ir.EventReconstructed, detail); err != nil {
		return nil, err
	}
	c.logger.Info("transaction reconstructed", "tx", id, "origin", origin)
	return &handle{c: c, id: id}, nil
}

// checkPayload verifies a payload names id.
func (c *Coordinator) checkPayload(op string, payload []byte, id ir.TxID) error {
	obj, err := ir.ParseObject(payload)
	if err != nil {
		return &ir.Error{Code: ir.ErrCodeInvalidFormat, Op: op, TxID: id, Message: "payload is not canonical JSON", Err: err}
	}
	if tx, _ := obj["tx"].(string); tx != id.String() {
		return &ir.Error{Code: ir.ErrCodeInvalidFormat, Op: op, TxID: id, Message: fmt.Sprintf("payload names transaction %q", tx)}
	}
	if _, ok := obj["coordinator"].(string); !ok {
		return &ir.Error{Code: ir.ErrCodeInvalidFormat, Op: op, TxID: id, Message: "payload has no coordinator"}
	}
	return nil
}

func (c *Coordinator) journal(ctx context.Context, id ir.TxID, kind string, detail ir.Object) error {
	ev, err := ir.NewTxEvent(id, kind, detail, c.clock.Next())
	if err != nil {
		return fmt.Errorf("journal %s %s: %w", kind, id, err)
	}
	if err := c.store.WriteEvent(ctx, ev); err != nil {
		return fmt.Errorf("journal %s %s: %w", kind, id, err)
	}
	return nil
}

// requireActive returns COMPLETED if id has finished.
func (c *Coordinator) requireActive(ctx context.Context, op string, id ir.TxID) error {
	rec, err := c.store.ReadTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if rec.Status != ir.StatusActive {
		return ir.NewCompletedError(op, id)
	}
	return nil
}

// transition moves id to a terminal status. Repeating the same outcome is a
// no-op; a conflicting status maps to COMPLETED.
func (c *Coordinator) transition(ctx context.Context, op string, id ir.TxID, to ir.Status, detail ir.Object) error {
	changed, err := c.store.TransitionStatus(ctx, id, ir.StatusActive, to, c.clock.Next())
	if errors.Is(err, store.ErrStatusConflict) {
		return ir.NewCompletedError(op, id)
	}
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	kind := ir.EventCommitted
	if to == ir.StatusAborted {
		kind = ir.EventAborted
	}
	if err := c.journal(ctx, id, kind, detail); err != nil {
		return err
	}
	c.logger.Info("transaction finished", "tx", id, "status", to)
	return nil
}

func (c *Coordinator) exportPayload(id ir.TxID, where []byte) ([]byte, error) {
	return ir.MarshalCanonical(ir.Object{
		"coordinator": c.name,
		"tx":          id.String(),
		"whereabouts": hex.EncodeToString(where),
	})
}

func (c *Coordinator) transmitterPayload(id ir.TxID) ([]byte, error) {
	return ir.MarshalCanonical(ir.Object{
		"coordinator": c.name,
		"tx":          id.String(),
	})
}
