package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/roach88/txprop/internal/coordinator"
	"github.com/roach88/txprop/internal/coordinator/grpccoord"
	"github.com/roach88/txprop/internal/interop"
	"github.com/roach88/txprop/internal/registry"
	"github.com/roach88/txprop/internal/store"
	"github.com/roach88/txprop/internal/txn"
)

// remoteTimeout bounds each call to a remote coordinator.
const remoteTimeout = 10 * time.Second

// node is one process-local view of the propagation stack: a coordinator,
// either over the local ledger or dialed remotely, and a facade over it.
type node struct {
	store  *store.Store // nil for a remote coordinator
	coord  txn.Coordinator
	facade *interop.Facade
	closer io.Closer
}

// openNode builds the stack described by the loaded config.
func openNode(ctx context.Context, opts *RootOptions) (*node, error) {
	cfg := opts.Config
	version, err := cfg.TokenVersion()
	if err != nil {
		return nil, err
	}
	signature, err := cfg.CookieSignature()
	if err != nil {
		return nil, err
	}

	n := &node{}
	if cfg.Coordinator.Remote != "" {
		client, err := grpccoord.Dial(ctx, cfg.Coordinator.Remote, grpccoord.DialOptions{Timeout: remoteTimeout})
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", cfg.Coordinator.Remote, err)
		}
		opts.Logger.Debug("connected to remote coordinator", "target", cfg.Coordinator.Remote, "kind", client.Kind())
		n.coord = client
		n.closer = client
	} else {
		st, err := store.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, err
		}
		coord, err := coordinator.New(ctx, st,
			coordinator.WithName(cfg.Coordinator.Name),
			coordinator.WithAddress(cfg.AdvertisedAddress()),
			coordinator.WithLogger(opts.Logger),
		)
		if err != nil {
			st.Close()
			return nil, err
		}
		opts.Logger.Debug("opened ledger", "path", cfg.Ledger.Path)
		n.store = st
		n.coord = coord
		n.closer = st
	}

	reg := registry.New(registry.WithLogger(opts.Logger))
	n.facade = interop.New(reg, nil, n.coord,
		interop.WithTokenVersion(version),
		interop.WithCookieSignature(signature),
		interop.WithLogger(opts.Logger),
	)
	return n, nil
}

// Close disposes every live proxy and releases the ledger or connection.
func (n *node) Close(ctx context.Context) error {
	var errs []error
	for _, id := range n.facade.Registry().IDs() {
		if tx := n.facade.Registry().Find(id); tx != nil {
			errs = append(errs, tx.Dispose(ctx))
		}
	}
	errs = append(errs, n.closer.Close())
	return errors.Join(errs...)
}

// readHexInput decodes a hex argument. "-" reads the value from in.
// Whitespace is ignored so tokens can be pasted across lines.
func readHexInput(arg string, in io.Reader) ([]byte, error) {
	if arg == "-" {
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		arg = string(data)
	}
	clean := strings.Join(strings.Fields(arg), "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode hex input: %w", err)
	}
	return b, nil
}
