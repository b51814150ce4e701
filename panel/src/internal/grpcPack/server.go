package grpcPack

import (
	"context"
	"fmt"
	"net"

	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/shared"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the panel
const ServiceName = "usbrefresh.Panel"

// Server exposes the standard gRPC health service for the panel
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *shared.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(logger *shared.Logger) *Server {
	if logger == nil {
		logger = shared.DefaultLogger
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			UnaryLoggingInterceptor(logger),
			UnaryErrorInterceptor,
		),
		grpc.ChainStreamInterceptor(StreamErrorInterceptor),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	return &Server{
		grpc:   s,
		health: hs,
		logger: logger,
	}
}

// SetServing updates the status reported for the panel and the server as a whole
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Start listens on addr and serves until Shutdown is called
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// Serve marks the panel as serving and blocks on lis
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Panel gRPC health server starting on %s", lis.Addr())
	s.SetServing(true)

	if err := s.grpc.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("failed to start gRPC server: %w", err)
	}
	return nil
}

// Drain reports NOT_SERVING for every service without stopping the server
func (s *Server) Drain() {
	s.health.Shutdown()
}

// Shutdown drains and then stops the server, forcing it once ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	s.Drain()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		return ctx.Err()
	}
}
