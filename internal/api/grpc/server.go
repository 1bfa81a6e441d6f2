package grpc

import (
	"context"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"toolshare-backend/internal/api/grpc/interceptor"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/service"
)

// ServiceName is the health entry tracking the entity store.
const ServiceName = "toolshare.Store"

// Pinger is satisfied by repository.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the gRPC edge: the standard health service, the booking service
// and reflection.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	store  Pinger

	mu      sync.Mutex
	serving bool
}

// NewServer builds the gRPC edge. bookings may be nil, in which case only
// health and reflection are served.
func NewServer(store Pinger, auth interceptor.Authenticator, bookings service.BookingService) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.Logging(),
			interceptor.NewAuthInterceptor(auth).Unary(),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if bookings != nil {
		s.RegisterService(&bookingServiceDesc, NewBookingHandler(bookings))
	}

	// Register reflection service for grpcurl
	reflection.Register(s)

	// NOT_SERVING until the first successful CheckStore
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{grpc: s, health: hs, store: store}
}

// CheckStore pings the store and publishes the result as the health status
// of both the overall server and ServiceName.
func (s *Server) CheckStore(ctx context.Context) error {
	err := s.store.Ping(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Store ping failed", "error", err)
	}
	s.setServing(err == nil)
	return err
}

func (s *Server) setServing(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serving != ok {
		logger.Info("Health status changed", "service", ServiceName, "serving", ok)
	}
	s.serving = ok
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
