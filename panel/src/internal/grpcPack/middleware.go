package grpcPack

import (
	"context"
	"time"

	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/errors"
	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/shared"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryErrorInterceptor is a gRPC interceptor that handles errors
func UnaryErrorInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = status.Error(codes.Internal, errors.RecoverError(r).Error())
		}
	}()

	resp, err = handler(ctx, req)
	if err != nil {
		return nil, convertError(err)
	}
	return resp, nil
}

// StreamErrorInterceptor is a gRPC interceptor that handles errors in streams
func StreamErrorInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = status.Error(codes.Internal, errors.RecoverError(r).Error())
		}
	}()

	return handler(srv, ss)
}

// UnaryLoggingInterceptor logs each unary call with its outcome
func UnaryLoggingInterceptor(logger *shared.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("gRPC %s %s %s", info.FullMethod, status.Code(err), time.Since(start))
		return resp, err
	}
}

// convertError converts a PanelError to a gRPC status error
func convertError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.IsCommand(err):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
