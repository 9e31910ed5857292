package interop

import (
	"context"
	"log/slog"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/registry"
	"github.com/roach88/txprop/internal/token"
	"github.com/roach88/txprop/internal/txn"
)

// Option configures a Facade.
type Option func(*Facade)

// WithTokenVersion sets the version fields written into propagation tokens.
func WithTokenVersion(v token.Version) Option {
	return func(f *Facade) {
		f.version = v
	}
}

// WithCookieSignature sets the signature written into export cookies.
func WithCookieSignature(s token.Signature) Option {
	return func(f *Facade) {
		f.signature = s
	}
}

// WithIDGenerator sets the generator Begin uses for new transactions.
func WithIDGenerator(gen txn.IDGenerator) Option {
	return func(f *Facade) {
		if gen != nil {
			f.gen = gen
		}
	}
}

// WithLogger sets the logger for the facade and the proxies it reconstructs.
func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.logger = l
		}
	}
}

// Facade is the entry point for exporting and importing transactions.
//
// Thread-safety: safe for concurrent use.
type Facade struct {
	reg      *registry.Registry
	promoter *txn.Promoter
	coord    txn.Coordinator

	version   token.Version
	signature token.Signature
	gen       txn.IDGenerator
	logger    *slog.Logger
}

// New creates a Facade over reg and coord.
//
// A nil promoter is replaced by one that promotes through coord and
// registers in reg. A nil coord is allowed: promotion and import then fail
// with NOT_SUPPORTED.
func New(reg *registry.Registry, promoter *txn.Promoter, coord txn.Coordinator, opts ...Option) *Facade {
	f := &Facade{
		reg:       reg,
		coord:     coord,
		version:   token.DefaultVersion,
		signature: token.DefaultCookieSignature,
		gen:       txn.UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.reg == nil {
		f.reg = registry.New(registry.WithLogger(f.logger))
	}
	if promoter == nil {
		promoter = txn.NewPromoter(coord, f.reg, txn.WithPromoterLogger(f.logger))
	}
	f.promoter = promoter
	return f
}

// Registry returns the registry the facade resolves imports through.
func (f *Facade) Registry() *registry.Registry {
	return f.reg
}

// Begin starts an Active local transaction that promotes to this facade's
// coordinator kind.
func (f *Facade) Begin(opts ...txn.Option) *txn.Transaction {
	base := []txn.Option{txn.WithLogger(f.logger)}
	if f.coord != nil {
		base = append(base, txn.WithPromoterType(f.coord.Kind()))
	}
	return txn.Begin(f.gen, append(base, opts...)...)
}

// Export promotes tx and returns an export cookie addressed to the
// coordinator at whereabouts.
//
// A nil whereabouts is a missing argument; an empty non-nil slice is
// encoded as zero bytes.
func (f *Facade) Export(ctx context.Context, tx *txn.Transaction, whereabouts []byte) ([]byte, error) {
	if tx == nil {
		return nil, ir.NewNullArgumentError("export", "transaction")
	}
	if whereabouts == nil {
		return nil, ir.NewNullArgumentError("export", "whereabouts")
	}
	where := clone(whereabouts)

	h, err := f.promoter.Promote(ctx, tx)
	if err != nil {
		return nil, err
	}
	payload, err := h.ExportPayload(ctx, where)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("exported cookie", "tx", tx.ID(), "payload_len", len(payload))
	return token.EncodeCookie(token.Cookie{
		Signature:   f.signature,
		ID:          tx.ID(),
		Whereabouts: where,
		Payload:     payload,
	}), nil
}

// ImportFromCookie returns the local proxy for the transaction a cookie
// names, reconstructing it through the coordinator if this process has none.
func (f *Facade) ImportFromCookie(ctx context.Context, cookie []byte) (*txn.Transaction, error) {
	if cookie == nil {
		return nil, ir.NewNullArgumentError("import from cookie", "cookie")
	}
	buf := clone(cookie)
	id, err := token.PeekCookieID(buf)
	if err != nil {
		return nil, err
	}
	return f.resolve(ctx, "import from cookie", id, func(ctx context.Context) (txn.Handle, error) {
		return f.coord.FromExportCookie(ctx, buf, id)
	})
}

// ExportPropagationToken promotes tx and returns a propagation token.
func (f *Facade) ExportPropagationToken(ctx context.Context, tx *txn.Transaction) ([]byte, error) {
	if tx == nil {
		return nil, ir.NewNullArgumentError("export propagation token", "transaction")
	}

	h, err := f.promoter.Promote(ctx, tx)
	if err != nil {
		return nil, err
	}
	payload, err := h.TransmitterPayload(ctx)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("exported propagation token", "tx", tx.ID(), "payload_len", len(payload))
	return token.EncodeToken(f.version, tx.ID(), payload), nil
}

// ImportFromPropagationToken returns the local proxy for the transaction a
// propagation token names, reconstructing it if this process has none.
func (f *Facade) ImportFromPropagationToken(ctx context.Context, tok []byte) (*txn.Transaction, error) {
	if tok == nil {
		return nil, ir.NewNullArgumentError("import from propagation token", "token")
	}
	buf := clone(tok)
	id, err := token.PeekTokenID(buf)
	if err != nil {
		return nil, err
	}
	return f.resolve(ctx, "import from propagation token", id, func(ctx context.Context) (txn.Handle, error) {
		return f.coord.FromPropagationToken(ctx, buf)
	})
}

// NativeTransaction promotes tx and returns the coordinator's control
// surface for it.
func (f *Facade) NativeTransaction(ctx context.Context, tx *txn.Transaction) (txn.NativeTransaction, error) {
	return f.promoter.Native(ctx, tx)
}

// FromNativeTransaction returns the local proxy for a native coordinator
// transaction, reconstructing it if this process has none.
func (f *Facade) FromNativeTransaction(ctx context.Context, native txn.NativeTransaction) (*txn.Transaction, error) {
	if native == nil {
		return nil, ir.NewNullArgumentError("from native transaction", "native")
	}
	var info txn.TransactionInfo
	if err := native.GetTransactionInfo(ctx, &info); err != nil {
		return nil, err
	}
	return f.resolve(ctx, "from native transaction", info.UOW, func(ctx context.Context) (txn.Handle, error) {
		return f.coord.FromNative(ctx, native)
	})
}

// Whereabouts returns the configured coordinator's locator bytes.
func (f *Facade) Whereabouts(ctx context.Context) ([]byte, error) {
	if f.coord == nil {
		return nil, ir.NewNotSupportedError("whereabouts", ir.NilTxID, "no distributed coordinator is configured")
	}
	w, err := f.coord.Whereabouts(ctx)
	if err != nil {
		return nil, err
	}
	return clone(w), nil
}

// resolve returns the registered proxy for id or builds one from a
// reconstructed handle. Terminal proxies are rejected.
func (f *Facade) resolve(ctx context.Context, op string, id ir.TxID, reconstruct func(context.Context) (txn.Handle, error)) (*txn.Transaction, error) {
	tx := f.reg.Find(id)
	if tx == nil {
		if f.coord == nil {
			return nil, ir.NewNotSupportedError(op, id, "no distributed coordinator is configured")
		}
		var err error
		tx, err = f.reg.FindOrCreate(ctx, id, func(ctx context.Context) (*txn.Transaction, error) {
			h, err := reconstruct(ctx)
			if err != nil {
				return nil, err
			}
			fresh, err := txn.NewPromoted(id, h,
				txn.WithPromoterType(f.coord.Kind()),
				txn.WithLogger(f.logger))
			if err != nil {
				if relErr := h.Release(ctx); relErr != nil {
					f.logger.Warn("release of rejected handle failed", "tx", id, "error", relErr)
				}
				return nil, err
			}
			f.logger.Info("transaction reconstructed", "tx", id, "op", op)
			return fresh, nil
		})
		if err != nil {
			return nil, err
		}
	}

	switch tx.State() {
	case ir.StateDisposed:
		return nil, ir.NewDisposedError(op, id)
	case ir.StateCompleted:
		return nil, ir.NewCompletedError(op, id)
	}
	return tx, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
