package grpccoord

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/txn"
)

// Server exposes a txn.Coordinator over the Coordinator gRPC service.
//
// Handles produced for remote callers stay in the server until the caller
// releases them.
type Server struct {
	UnimplementedCoordinatorServer

	coord  txn.Coordinator
	logger *slog.Logger

	mu      sync.Mutex
	handles map[uuid.UUID]txn.Handle
}

// NewServer wraps coord. A nil logger uses slog.Default().
func NewServer(coord txn.Coordinator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		coord:   coord,
		logger:  logger,
		handles: make(map[uuid.UUID]txn.Handle),
	}
}

// NewGRPCServer builds a grpc.Server with the Coordinator and health
// services registered and request logging installed.
func NewGRPCServer(srv *Server, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(srv.logger)))
	gs := grpc.NewServer(opts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	RegisterCoordinatorServer(gs, srv)
	return gs, healthSrv
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("rpc failed", "method", info.FullMethod, "error", err, "elapsed", time.Since(start))
		} else {
			logger.Debug("rpc", "method", info.FullMethod, "elapsed", time.Since(start))
		}
		return resp, err
	}
}

// Outstanding returns the number of handles not yet released.
func (s *Server) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// IDs returns the distinct transactions with outstanding handles, sorted.
func (s *Server) IDs() []ir.TxID {
	s.mu.Lock()
	seen := make(map[ir.TxID]struct{}, len(s.handles))
	for _, h := range s.handles {
		seen[h.ID()] = struct{}{}
	}
	s.mu.Unlock()
	ids := make([]ir.TxID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b ir.TxID) int { return bytes.Compare(a[:], b[:]) })
	return ids
}

func (s *Server) track(h txn.Handle) *wrapperspb.BytesValue {
	ref := uuid.New()
	s.mu.Lock()
	s.handles[ref] = h
	s.mu.Unlock()
	return wrapperspb.Bytes(encodeHandleReply(ref, h.ID()))
}

func (s *Server) lookup(op string, in *wrapperspb.BytesValue) (txn.Handle, []byte, error) {
	ref, body, err := unframe(op, in.GetValue())
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	h, ok := s.handles[ref]
	s.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%s %s: %w", op, uuid.UUID(ref), errUnknownHandle)
	}
	return h, body, nil
}

func (s *Server) Kind(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	kind := s.coord.Kind()
	return wrapperspb.Bytes(kind[:]), nil
}

func (s *Server) Whereabouts(ctx context.Context, _ *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	w, err := s.coord.Whereabouts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(w), nil
}

func (s *Server) Promote(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	id, _, err := unframe("promote", in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	h, err := s.coord.Promote(ctx, ir.TxID(id))
	if err != nil {
		return nil, toStatus(err)
	}
	return s.track(h), nil
}

func (s *Server) FromExportCookie(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	id, cookie, err := unframe("from export cookie", in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	h, err := s.coord.FromExportCookie(ctx, cookie, ir.TxID(id))
	if err != nil {
		return nil, toStatus(err)
	}
	return s.track(h), nil
}

func (s *Server) FromPropagationToken(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_, tok, err := unframe("from propagation token", in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	h, err := s.coord.FromPropagationToken(ctx, tok)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.track(h), nil
}

func (s *Server) FromNative(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	id, _, err := unframe("from native", in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	h, err := s.coord.FromNative(ctx, infoOnly{id: ir.TxID(id)})
	if err != nil {
		return nil, toStatus(err)
	}
	return s.track(h), nil
}

func (s *Server) ExportPayload(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	h, where, err := s.lookup("export payload", in)
	if err != nil {
		return nil, toStatus(err)
	}
	payload, err := h.ExportPayload(ctx, where)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(payload), nil
}

func (s *Server) TransmitterPayload(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	h, _, err := s.lookup("transmitter payload", in)
	if err != nil {
		return nil, toStatus(err)
	}
	payload, err := h.TransmitterPayload(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(payload), nil
}

func (s *Server) Commit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	h, body, err := s.lookup("commit", in)
	if err != nil {
		return nil, toStatus(err)
	}
	retaining, commitType, reserved, err := decodeCommit(body)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := h.Native().Commit(ctx, retaining, commitType, reserved); err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(nil), nil
}

func (s *Server) Abort(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	h, body, err := s.lookup("abort", in)
	if err != nil {
		return nil, toStatus(err)
	}
	reason, retaining, async, err := decodeAbort(body)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := h.Native().Abort(ctx, reason, retaining, async); err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(nil), nil
}

func (s *Server) Info(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	h, _, err := s.lookup("info", in)
	if err != nil {
		return nil, toStatus(err)
	}
	var info txn.TransactionInfo
	if err := h.Native().GetTransactionInfo(ctx, &info); err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(encodeInfo(info)), nil
}

// Release releases and forgets the handle. Releasing an unknown handle is
// NotFound.
func (s *Server) Release(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ref, _, err := unframe("release", in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	s.mu.Lock()
	h, ok := s.handles[ref]
	delete(s.handles, ref)
	s.mu.Unlock()
	if !ok {
		return nil, toStatus(fmt.Errorf("release %s: %w", uuid.UUID(ref), errUnknownHandle))
	}
	if err := h.Release(ctx); err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(nil), nil
}

// infoOnly is the native surface the server hands to FromNative: the remote
// caller can only send the unit-of-work identifier.
type infoOnly struct {
	id ir.TxID
}

func (n infoOnly) Commit(_ context.Context, _ bool, _ txn.CommitType, _ uint32) error {
	return ir.NewNotSupportedError("commit", n.id, "identifier-only native transaction")
}

func (n infoOnly) Abort(_ context.Context, _ []byte, _ bool, _ bool) error {
	return ir.NewNotSupportedError("abort", n.id, "identifier-only native transaction")
}

func (n infoOnly) GetTransactionInfo(_ context.Context, info *txn.TransactionInfo) error {
	if info == nil {
		return ir.NewNullArgumentError("get transaction info", "info")
	}
	*info = txn.TransactionInfo{UOW: n.id}
	return nil
}
