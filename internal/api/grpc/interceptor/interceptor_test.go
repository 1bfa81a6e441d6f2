package interceptor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"toolshare-backend/internal/domain"
)

type fakeAuth struct{}

func (fakeAuth) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	if token != "good" {
		return nil, domain.NewUnauthenticatedError("bad token")
	}
	return &domain.Session{Username: "alice", Token: token}, nil
}

func TestAuthInterceptor(t *testing.T) {
	unary := NewAuthInterceptor(fakeAuth{}).Unary()
	whoami := func(ctx context.Context, req interface{}) (interface{}, error) {
		session, ok := domain.SessionFromContext(ctx)
		if !ok {
			return "", nil
		}
		return session.Username, nil
	}
	private := &grpc.UnaryServerInfo{FullMethod: "/toolshare.v1.BookingService/CreateBooking"}

	t.Run("PublicMethod", func(t *testing.T) {
		resp, err := unary(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, whoami)
		require.NoError(t, err)
		assert.Equal(t, "", resp)
	})

	t.Run("MissingToken", func(t *testing.T) {
		_, err := unary(context.Background(), nil, private, whoami)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("BadToken", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer nope"))
		_, err := unary(ctx, nil, private, whoami)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("ValidToken", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer good"))
		resp, err := unary(ctx, nil, private, whoami)
		require.NoError(t, err)
		assert.Equal(t, "alice", resp)
	})
}

func TestLoggingInterceptor(t *testing.T) {
	unary := Logging()
	info := &grpc.UnaryServerInfo{FullMethod: "/toolshare.v1.Test/Do"}

	_, err := unary(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, domain.NewNotAvailableError("tool 1 is booked")
	})
	assert.Equal(t, codes.Aborted, status.Code(err))
	assert.Equal(t, "tool 1 is booked", status.Convert(err).Message())

	_, err = unary(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestToStatus(t *testing.T) {
	assert.NoError(t, ToStatus(nil))
	for err, want := range map[error]codes.Code{
		domain.NewValidationError("x"):        codes.InvalidArgument,
		domain.NewNotFoundError("x"):          codes.NotFound,
		domain.NewUnauthorizedError("x"):      codes.PermissionDenied,
		domain.NewUnauthenticatedError("x"):   codes.Unauthenticated,
		domain.NewInvalidTransitionError("x"): codes.FailedPrecondition,
		domain.NewSelfBookingError("x"):       codes.FailedPrecondition,
		domain.NewConflictError("x"):          codes.Aborted,
		fmt.Errorf("io: %w", errors.New("x")): codes.Internal,
		status.Error(codes.Unavailable, "x"):  codes.Unavailable,
	} {
		assert.Equal(t, want, status.Code(ToStatus(err)), err.Error())
	}
}
