package grpccoord

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "txprop.coordinator.v1.Coordinator"

// Method names.
const (
	MethodKind                 = "Kind"
	MethodWhereabouts          = "Whereabouts"
	MethodPromote              = "Promote"
	MethodFromExportCookie     = "FromExportCookie"
	MethodFromPropagationToken = "FromPropagationToken"
	MethodFromNative           = "FromNative"
	MethodExportPayload        = "ExportPayload"
	MethodTransmitterPayload   = "TransmitterPayload"
	MethodCommit               = "Commit"
	MethodAbort                = "Abort"
	MethodInfo                 = "Info"
	MethodRelease              = "Release"
)

type unaryMethod func(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)

// CoordinatorServer is the server API for the Coordinator service.
type CoordinatorServer interface {
	Kind(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Whereabouts(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Promote(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	FromExportCookie(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	FromPropagationToken(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	FromNative(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ExportPayload(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	TransmitterPayload(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Commit(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Abort(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Info(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Release(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// methodTable lists every method with its server-side dispatch.
func methodTable(s CoordinatorServer) map[string]unaryMethod {
	return map[string]unaryMethod{
		MethodKind:                 s.Kind,
		MethodWhereabouts:          s.Whereabouts,
		MethodPromote:              s.Promote,
		MethodFromExportCookie:     s.FromExportCookie,
		MethodFromPropagationToken: s.FromPropagationToken,
		MethodFromNative:           s.FromNative,
		MethodExportPayload:        s.ExportPayload,
		MethodTransmitterPayload:   s.TransmitterPayload,
		MethodCommit:               s.Commit,
		MethodAbort:                s.Abort,
		MethodInfo:                 s.Info,
		MethodRelease:              s.Release,
	}
}

var methodNames = []string{
	MethodKind, MethodWhereabouts, MethodPromote, MethodFromExportCookie,
	MethodFromPropagationToken, MethodFromNative, MethodExportPayload,
	MethodTransmitterPayload, MethodCommit, MethodAbort, MethodInfo, MethodRelease,
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// RegisterCoordinatorServer registers the Coordinator service on a gRPC server.
func RegisterCoordinatorServer(s grpc.ServiceRegistrar, srv CoordinatorServer) {
	table := methodTable(srv)
	methods := make([]grpc.MethodDesc, 0, len(methodNames))
	for _, name := range methodNames {
		methods = append(methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    unaryHandler(name, table[name]),
		})
	}
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*CoordinatorServer)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "txprop/coordinator/v1/coordinator.proto",
	}, srv)
}

func unaryHandler(name string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(wrapperspb.BytesValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*wrapperspb.BytesValue)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CoordinatorClient is the client API for the Coordinator service.
type CoordinatorClient interface {
	Call(ctx context.Context, method string, in []byte, opts ...grpc.CallOption) ([]byte, error)
}

type coordinatorClient struct{ cc grpc.ClientConnInterface }

// NewCoordinatorClient creates a raw client over cc.
func NewCoordinatorClient(cc grpc.ClientConnInterface) CoordinatorClient {
	return &coordinatorClient{cc: cc}
}

func (c *coordinatorClient) Call(ctx context.Context, method string, in []byte, opts ...grpc.CallOption) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, fullMethod(method), wrapperspb.Bytes(in), out, opts...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

// UnimplementedCoordinatorServer can be embedded to have forward compatible implementations.
type UnimplementedCoordinatorServer struct{}

func unimplemented(name string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", name)
}

func (UnimplementedCoordinatorServer) Kind(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodKind)
}
func (UnimplementedCoordinatorServer) Whereabouts(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodWhereabouts)
}
func (UnimplementedCoordinatorServer) Promote(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodPromote)
}
func (UnimplementedCoordinatorServer) FromExportCookie(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodFromExportCookie)
}
func (UnimplementedCoordinatorServer) FromPropagationToken(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodFromPropagationToken)
}
func (UnimplementedCoordinatorServer) FromNative(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodFromNative)
}
func (UnimplementedCoordinatorServer) ExportPayload(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodExportPayload)
}
func (UnimplementedCoordinatorServer) TransmitterPayload(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodTransmitterPayload)
}
func (UnimplementedCoordinatorServer) Commit(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodCommit)
}
func (UnimplementedCoordinatorServer) Abort(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodAbort)
}
func (UnimplementedCoordinatorServer) Info(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodInfo)
}
func (UnimplementedCoordinatorServer) Release(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, unimplemented(MethodRelease)
}
