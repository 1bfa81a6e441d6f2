package interceptor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
)

// Logging tags the context with a request id, converts domain errors to
// status codes and recovers handler panics.
func Logging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		ctx = logger.NewContext(ctx, "request_id", uuid.NewString(), "rpc", info.FullMethod)
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "Panic in RPC handler", "panic", rec)
				err = status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			logger.DebugContext(ctx, "RPC finished", "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
		}()

		resp, err = handler(ctx, req)
		return resp, ToStatus(err)
	}
}

// ToStatus maps domain error kinds to gRPC codes. Errors that already carry a
// status pass through.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Internal
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		code = codes.InvalidArgument
	case domain.ErrNotFound:
		code = codes.NotFound
	case domain.ErrUnauthorized:
		code = codes.PermissionDenied
	case domain.ErrUnauthenticated:
		code = codes.Unauthenticated
	case domain.ErrInvalidTransition, domain.ErrSelfBooking:
		code = codes.FailedPrecondition
	case domain.ErrNotAvailable, domain.ErrConflict:
		code = codes.Aborted
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return status.Error(code, de.Message)
	}
	return status.Error(code, err.Error())
}
