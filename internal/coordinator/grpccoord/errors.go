package grpccoord

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/store"
)

var errUnknownHandle = errors.New("unknown handle")

// toStatus maps a coordinator error to a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	switch ir.CodeOf(err) {
	case ir.ErrCodeNullArgument, ir.ErrCodeInvalidFormat:
		return status.Error(codes.InvalidArgument, err.Error())
	case ir.ErrCodeDisposed, ir.ErrCodeCompleted:
		return status.Error(codes.FailedPrecondition, err.Error())
	case ir.ErrCodeNotSupported:
		return status.Error(codes.Unimplemented, err.Error())
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errUnknownHandle):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fromStatus rebuilds a taxonomy error from a status whose message starts
// with an ir.ErrorCode. Other errors are returned unchanged.
func fromStatus(method string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	prefix, rest, found := strings.Cut(st.Message(), ": ")
	if !found {
		return err
	}
	code, ok := ir.ParseErrorCode(prefix)
	if !ok {
		return err
	}
	return &ir.Error{
		Code:    code,
		Op:      "remote " + method,
		Message: rest,
		Err:     err,
	}
}
