package coordinator

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/txn"
)

// handle is the coordinator-side transaction owned by one proxy.
type handle struct {
	c        *Coordinator
	id       ir.TxID
	released atomic.Bool
}

func (h *handle) ID() ir.TxID {
	return h.id
}

func (h *handle) ExportPayload(ctx context.Context, whereabouts []byte) ([]byte, error) {
	if err := h.c.requireActive(ctx, "export payload", h.id); err != nil {
		return nil, err
	}
	payload, err := h.c.exportPayload(h.id, whereabouts)
	if err != nil {
		return nil, fmt.Errorf("export payload %s: %w", h.id, err)
	}
	addr, _, _ := DecodeWhereabouts(whereabouts)
	if err := h.c.journal(ctx, h.id, ir.EventExported, ir.Object{
		"to":             addr,
		"payload_digest": ir.PayloadDigest(payload),
	}); err != nil {
		return nil, err
	}
	return payload, nil
}

func (h *handle) TransmitterPayload(ctx context.Context) ([]byte, error) {
	if err := h.c.requireActive(ctx, "transmitter payload", h.id); err != nil {
		return nil, err
	}
	payload, err := h.c.transmitterPayload(h.id)
	if err != nil {
		return nil, fmt.Errorf("transmitter payload %s: %w", h.id, err)
	}
	if err := h.c.journal(ctx, h.id, ir.EventTransmitted, ir.Object{
		"payload_digest": ir.PayloadDigest(payload),
	}); err != nil {
		return nil, err
	}
	return payload, nil
}

func (h *handle) Native() txn.NativeTransaction {
	return &native{c: h.c, id: h.id}
}

// Release journals the release once; later calls are no-ops.
func (h *handle) Release(ctx context.Context) error {
	if !h.released.CompareAndSwap(false, true) {
		return nil
	}
	return h.c.journal(ctx, h.id, ir.EventReleased, nil)
}

// native adapts the ledger to txn.NativeTransaction.
type native struct {
	c  *Coordinator
	id ir.TxID
}

func (n *native) Commit(ctx context.Context, retaining bool, commitType txn.CommitType, _ uint32) error {
	if retaining {
		return ir.NewNotSupportedError("commit", n.id, "retaining commit")
	}
	switch commitType {
	case 0:
		commitType = txn.CommitSync
	case txn.CommitSync, txn.CommitSyncPhaseOne, txn.CommitAsync:
	default:
		return ir.NewNotSupportedError("commit", n.id, fmt.Sprintf("commit type %d", commitType))
	}
	return n.c.transition(ctx, "commit", n.id, ir.StatusCommitted, ir.Object{
		"commit_type": int64(commitType),
	})
}

func (n *native) Abort(ctx context.Context, reason []byte, retaining bool, async bool) error {
	if retaining {
		return ir.NewNotSupportedError("abort", n.id, "retaining abort")
	}
	return n.c.transition(ctx, "abort", n.id, ir.StatusAborted, ir.Object{
		"reason": hex.EncodeToString(reason),
		"async":  async,
	})
}

func (n *native) GetTransactionInfo(ctx context.Context, info *txn.TransactionInfo) error {
	if info == nil {
		return ir.NewNullArgumentError("get transaction info", "info")
	}
	rec, err := n.c.store.ReadTransaction(ctx, n.id)
	if err != nil {
		return fmt.Errorf("get transaction info %s: %w", n.id, err)
	}
	*info = txn.TransactionInfo{
		UOW:            rec.ID,
		IsolationLevel: IsolationSerializable,
		Description:    fmt.Sprintf("%s/%s", n.c.name, rec.Status),
	}
	return nil
}
