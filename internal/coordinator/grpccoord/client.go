package grpccoord

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/token"
	"github.com/roach88/txprop/internal/txn"
)

// Client implements txn.Coordinator over a Coordinator gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client CoordinatorClient
	kind   uuid.UUID

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ txn.Coordinator = (*Client)(nil)

// DialOptions configures Dial.
type DialOptions struct {
	// Timeout applies to each RPC when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra dial options, appended after the defaults.
	GRPCOptions []grpc.DialOption
}

// Dial connects to a coordinator at target and fetches its kind.
func Dial(ctx context.Context, target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.GRPCOptions...)

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator %s: %w", target, err)
	}
	c, err := Connect(ctx, cc, opts.Timeout)
	if err != nil {
		_ = cc.Close()
		return nil, err
	}
	c.cc = cc
	return c, nil
}

// Connect builds a client over an existing connection and fetches the
// remote coordinator's kind. The caller keeps ownership of cc.
func Connect(ctx context.Context, cc grpc.ClientConnInterface, timeout time.Duration) (*Client, error) {
	c := &Client{client: NewCoordinatorClient(cc), Timeout: timeout}
	out, err := c.call(ctx, MethodKind, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch coordinator kind: %w", err)
	}
	kind, err := uuid.FromBytes(out)
	if err != nil {
		return nil, fmt.Errorf("fetch coordinator kind: %w", err)
	}
	c.kind = kind
	return c, nil
}

// Close closes a connection opened by Dial.
func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) call(ctx context.Context, method string, in []byte) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	out, err := c.client.Call(ctx, method, in)
	if err != nil {
		return nil, fromStatus(method, err)
	}
	return out, nil
}

func (c *Client) handleCall(ctx context.Context, method string, in []byte) (txn.Handle, error) {
	out, err := c.call(ctx, method, in)
	if err != nil {
		return nil, err
	}
	ref, id, err := decodeHandleReply(method, out)
	if err != nil {
		return nil, err
	}
	return &remoteHandle{c: c, ref: ref, id: id}, nil
}

// Kind implements txn.Coordinator. The value is fetched once at connect time.
func (c *Client) Kind() uuid.UUID {
	return c.kind
}

// Whereabouts implements txn.Coordinator.
func (c *Client) Whereabouts(ctx context.Context) ([]byte, error) {
	return c.call(ctx, MethodWhereabouts, nil)
}

// Promote implements txn.Coordinator.
func (c *Client) Promote(ctx context.Context, id ir.TxID) (txn.Handle, error) {
	return c.handleCall(ctx, MethodPromote, frame(id, nil))
}

// FromExportCookie implements txn.Coordinator.
func (c *Client) FromExportCookie(ctx context.Context, cookie []byte, id ir.TxID) (txn.Handle, error) {
	return c.handleCall(ctx, MethodFromExportCookie, frame(id, cookie))
}

// FromPropagationToken implements txn.Coordinator.
func (c *Client) FromPropagationToken(ctx context.Context, tok []byte) (txn.Handle, error) {
	id, err := token.PeekTokenID(tok)
	if err != nil {
		return nil, err
	}
	return c.handleCall(ctx, MethodFromPropagationToken, frame(id, tok))
}

// FromNative implements txn.Coordinator. Only the native surface's
// unit-of-work identifier crosses the wire.
func (c *Client) FromNative(ctx context.Context, native txn.NativeTransaction) (txn.Handle, error) {
	if native == nil {
		return nil, ir.NewNullArgumentError("from native", "native")
	}
	var info txn.TransactionInfo
	if err := native.GetTransactionInfo(ctx, &info); err != nil {
		return nil, err
	}
	return c.handleCall(ctx, MethodFromNative, frame(info.UOW, nil))
}

// remoteHandle is a server-side handle addressed by its ref.
type remoteHandle struct {
	c        *Client
	ref      uuid.UUID
	id       ir.TxID
	released atomic.Bool
}

func (h *remoteHandle) ID() ir.TxID {
	return h.id
}

func (h *remoteHandle) ExportPayload(ctx context.Context, whereabouts []byte) ([]byte, error) {
	return h.c.call(ctx, MethodExportPayload, frame(h.ref, whereabouts))
}

func (h *remoteHandle) TransmitterPayload(ctx context.Context) ([]byte, error) {
	return h.c.call(ctx, MethodTransmitterPayload, frame(h.ref, nil))
}

func (h *remoteHandle) Native() txn.NativeTransaction {
	return &remoteNative{h: h}
}

// Release releases the server-side handle once; later calls are no-ops.
func (h *remoteHandle) Release(ctx context.Context) error {
	if !h.released.CompareAndSwap(false, true) {
		return nil
	}
	_, err := h.c.call(ctx, MethodRelease, frame(h.ref, nil))
	return err
}

type remoteNative struct {
	h *remoteHandle
}

func (n *remoteNative) Commit(ctx context.Context, retaining bool, commitType txn.CommitType, reserved uint32) error {
	_, err := n.h.c.call(ctx, MethodCommit, frame(n.h.ref, encodeCommit(retaining, commitType, reserved)))
	return err
}

func (n *remoteNative) Abort(ctx context.Context, reason []byte, retaining bool, async bool) error {
	_, err := n.h.c.call(ctx, MethodAbort, frame(n.h.ref, encodeAbort(reason, retaining, async)))
	return err
}

func (n *remoteNative) GetTransactionInfo(ctx context.Context, info *txn.TransactionInfo) error {
	if info == nil {
		return ir.NewNullArgumentError("get transaction info", "info")
	}
	out, err := n.h.c.call(ctx, MethodInfo, frame(n.h.ref, nil))
	if err != nil {
		return err
	}
	decoded, err := decodeInfo(out)
	if err != nil {
		return err
	}
	*info = decoded
	return nil
}
