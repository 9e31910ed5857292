package harness

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/txprop/internal/coordinator"
	"github.com/roach88/txprop/internal/interop"
	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/registry"
	"github.com/roach88/txprop/internal/store"
	"github.com/roach88/txprop/internal/testutil"
	"github.com/roach88/txprop/internal/txn"
)

// node is one simulated process.
type node struct {
	name   string
	store  *store.Store
	coord  *coordinator.Coordinator
	facade *interop.Facade
}

// Harness executes one scenario.
type Harness struct {
	nodes  map[string]*node
	txs    map[string]*txn.Transaction
	owners map[string]*node
	blobs  map[string][]byte
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Every node gets a fresh in-memory ledger. Proxies still alive at the end
// are disposed after the snapshot is taken.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()
	ids := testutil.NewFixedIDs(scenario.IDs...)

	h := &Harness{
		nodes:  make(map[string]*node, len(scenario.Nodes)),
		txs:    make(map[string]*txn.Transaction),
		owners: make(map[string]*node),
		blobs:  make(map[string][]byte),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	defer h.close(ctx)

	for _, name := range scenario.Nodes {
		n, err := h.newNode(ctx, name, clock, ids)
		if err != nil {
			return nil, err
		}
		h.nodes[name] = n
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, step)
		ev.Step = i
		ev.Node = step.Node
		ev.Op = step.Op
		if err != nil {
			ev.Error = string(ir.CodeOf(err))
		}
		result.Trace = append(result.Trace, ev)

		switch {
		case step.ExpectError != "" && err == nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got success", i, step.Op, step.ExpectError))
		case step.ExpectError != "" && string(ir.CodeOf(err)) != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %v", i, step.Op, step.ExpectError, err))
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
		}
		if !result.Pass {
			break
		}
	}

	for _, name := range scenario.Nodes {
		snap, err := h.snapshot(ctx, h.nodes[name])
		if err != nil {
			return nil, err
		}
		result.Nodes[name] = snap
	}

	if result.Pass {
		for _, msg := range EvaluateAssertions(h, scenario.Assertions) {
			result.AddError(msg)
		}
	}
	return result, nil
}

func (h *Harness) newNode(ctx context.Context, name string, clock coordinator.Clock, ids txn.IDGenerator) (*node, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("node %s: open ledger: %w", name, err)
	}
	coord, err := coordinator.New(ctx, st,
		coordinator.WithName(name),
		coordinator.WithAddress(name),
		coordinator.WithClock(clock),
		coordinator.WithLogger(h.logger))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("node %s: %w", name, err)
	}
	reg := registry.New(registry.WithLogger(h.logger))
	return &node{
		name:  name,
		store: st,
		coord: coord,
		facade: interop.New(reg, nil, coord,
			interop.WithIDGenerator(ids),
			interop.WithLogger(h.logger)),
	}, nil
}

func (h *Harness) close(ctx context.Context) {
	for _, tx := range h.txs {
		_ = tx.Dispose(ctx)
	}
	for _, n := range h.nodes {
		_ = n.store.Close()
	}
}

func (h *Harness) tx(ref string) (*txn.Transaction, error) {
	tx, ok := h.txs[ref]
	if !ok {
		return nil, fmt.Errorf("%q is not a transaction ref", ref)
	}
	return tx, nil
}

func (h *Harness) blob(ref string) ([]byte, error) {
	b, ok := h.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("%q is not a blob ref", ref)
	}
	return b, nil
}

func (h *Harness) bindTx(n *node, ref string, tx *txn.Transaction) TraceEvent {
	if ref != "" {
		h.txs[ref] = tx
		h.owners[ref] = n
	}
	return TraceEvent{Ref: ref, TxID: tx.ID().String(), State: tx.State().String()}
}

func (h *Harness) bindBlob(ref string, b []byte) TraceEvent {
	if ref != "" {
		h.blobs[ref] = b
	}
	return TraceEvent{Ref: ref, Bytes: len(b)}
}

// execute runs one step. The returned event carries the step's result.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	n := h.nodes[step.Node]
	f := n.facade

	switch step.Op {
	case OpBegin:
		return h.bindTx(n, step.As, f.Begin()), nil

	case OpImportCookie, OpImportToken:
		b, err := h.blob(step.Blob)
		if err != nil {
			return TraceEvent{}, err
		}
		var tx *txn.Transaction
		if step.Op == OpImportCookie {
			tx, err = f.ImportFromCookie(ctx, b)
		} else {
			tx, err = f.ImportFromPropagationToken(ctx, b)
		}
		if err != nil {
			return TraceEvent{}, err
		}
		return h.bindTx(n, step.As, tx), nil

	case OpFromNative:
		src, err := h.tx(step.From)
		if err != nil {
			return TraceEvent{}, err
		}
		native, err := h.owners[step.From].facade.NativeTransaction(ctx, src)
		if err != nil {
			return TraceEvent{}, err
		}
		tx, err := f.FromNativeTransaction(ctx, native)
		if err != nil {
			return TraceEvent{}, err
		}
		return h.bindTx(n, step.As, tx), nil
	}

	tx, err := h.tx(step.Tx)
	if err != nil {
		return TraceEvent{}, err
	}
	ev := TraceEvent{TxID: tx.ID().String()}

	switch step.Op {
	case OpPromote:
		_, err = f.NativeTransaction(ctx, tx)
	case OpExportCookie:
		to := n
		if step.To != "" {
			to = h.nodes[step.To]
		}
		var where, cookie []byte
		where, err = to.facade.Whereabouts(ctx)
		if err == nil {
			cookie, err = f.Export(ctx, tx, where)
		}
		if err == nil {
			ev = h.bindBlob(step.As, cookie)
			ev.TxID = tx.ID().String()
		}
	case OpExportToken:
		var tok []byte
		tok, err = f.ExportPropagationToken(ctx, tx)
		if err == nil {
			ev = h.bindBlob(step.As, tok)
			ev.TxID = tx.ID().String()
		}
	case OpCommit, OpAbort:
		var native txn.NativeTransaction
		native, err = f.NativeTransaction(ctx, tx)
		if err == nil && step.Op == OpCommit {
			err = native.Commit(ctx, false, txn.CommitSync, 0)
		} else if err == nil {
			err = native.Abort(ctx, []byte(step.Reason), false, false)
		}
	case OpComplete:
		err = tx.Complete()
	case OpDispose:
		err = tx.Dispose(ctx)
	default:
		err = fmt.Errorf("unknown op %q", step.Op)
	}
	if err != nil {
		return ev, err
	}
	ev.State = tx.State().String()
	return ev, nil
}

func (h *Harness) snapshot(ctx context.Context, n *node) (NodeSnapshot, error) {
	recs, err := n.store.ListTransactions(ctx)
	if err != nil {
		return NodeSnapshot{}, fmt.Errorf("node %s: %w", n.name, err)
	}
	snap := NodeSnapshot{
		Transactions: make([]LedgerRow, 0, len(recs)),
		Events:       []LedgerEvent{},
		Live:         n.facade.Registry().Len(),
	}
	for _, rec := range recs {
		snap.Transactions = append(snap.Transactions, LedgerRow{
			ID:          rec.ID.String(),
			Status:      string(rec.Status),
			Origin:      rec.Origin,
			Whereabouts: hex.EncodeToString(rec.Whereabouts),
			Seq:         rec.Seq,
		})
		events, err := n.store.ReadEvents(ctx, rec.ID)
		if err != nil {
			return NodeSnapshot{}, fmt.Errorf("node %s: %w", n.name, err)
		}
		for _, ev := range events {
			snap.Events = append(snap.Events, LedgerEvent{
				TxID:   ev.TxID.String(),
				Kind:   ev.Kind,
				Detail: ev.Detail,
				Seq:    ev.Seq,
			})
		}
	}
	return snap, nil
}
