package txn

import (
	"context"
	"log/slog"

	"github.com/roach88/txprop/internal/ir"
)

// Registrar records promoted proxies so inbound cookies and tokens for the
// same identifier resolve to them. Implemented by registry.Registry.
type Registrar interface {
	Register(tx *Transaction) error
}

// PromoterOption configures a Promoter.
type PromoterOption func(*Promoter)

// WithPromoterLogger sets the logger used for promotion events.
func WithPromoterLogger(l *slog.Logger) PromoterOption {
	return func(p *Promoter) {
		if l != nil {
			p.logger = l
		}
	}
}

// Promoter converts local transactions into coordinator-controlled ones.
//
// A nil coordinator is allowed: every promotion then fails with
// NOT_SUPPORTED. A nil registrar skips registration.
type Promoter struct {
	coord  Coordinator
	reg    Registrar
	logger *slog.Logger
}

// NewPromoter creates a Promoter for coord, registering promoted proxies in reg.
func NewPromoter(coord Coordinator, reg Registrar, opts ...PromoterOption) *Promoter {
	p := &Promoter{
		coord:  coord,
		reg:    reg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Promote returns the coordinator handle for tx, promoting it first if it
// is still Active.
//
// Promotion happens at most once per transaction: later calls return the
// cached handle. On failure the transaction stays Active with no handle.
//
// Errors:
//   - NULL_ARGUMENT if tx is nil
//   - DISPOSED / COMPLETED if tx is in that state
//   - NOT_SUPPORTED if no coordinator is configured or its Kind does not
//     match tx.PromoterType()
//   - coordinator and registrar errors unchanged
func (p *Promoter) Promote(ctx context.Context, tx *Transaction) (Handle, error) {
	if tx == nil {
		return nil, ir.NewNullArgumentError("promote", "transaction")
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if err := tx.checkUsable("promote"); err != nil {
		return nil, err
	}
	if tx.State() == ir.StatePromoted {
		return tx.handle, nil
	}

	if p.coord == nil {
		return nil, ir.NewNotSupportedError("promote", tx.id, "no distributed coordinator is configured")
	}
	if kind := p.coord.Kind(); kind != tx.promoterType {
		return nil, ir.NewNotSupportedError("promote", tx.id,
			"transaction promoter type "+tx.promoterType.String()+" does not match coordinator "+kind.String())
	}

	h, err := p.coord.Promote(ctx, tx.id)
	if err != nil {
		p.logger.Error("promotion failed", "tx", tx.id, "error", err)
		return nil, err
	}

	tx.attach(h)

	if p.reg != nil {
		if err := p.reg.Register(tx); err != nil {
			tx.detach()
			tx.state.Store(int32(ir.StateActive))
			if relErr := h.Release(ctx); relErr != nil {
				p.logger.Warn("release after failed registration", "tx", tx.id, "error", relErr)
			}
			return nil, err
		}
	}

	p.logger.Info("transaction promoted", "tx", tx.id, "coordinator", p.coord.Kind())
	return h, nil
}

// Native returns the coordinator control surface for tx, promoting it if
// needed. Preconditions and errors are those of Promote.
func (p *Promoter) Native(ctx context.Context, tx *Transaction) (NativeTransaction, error) {
	h, err := p.Promote(ctx, tx)
	if err != nil {
		return nil, err
	}
	return h.Native(), nil
}
