package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/refresh"
	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/shared"

	"github.com/gorilla/mux"
)

// Server represents the HTTP control panel
type Server struct {
	router    *mux.Router
	http      *http.Server
	sequencer *refresh.Sequencer
	metrics   *Metrics
	tracer    *Tracer
	health    *HealthManager
	logger    *shared.Logger
}

// NewServer creates a new panel server instance
func NewServer(sequencer *refresh.Sequencer, metrics *Metrics, tracer *Tracer, logger *shared.Logger) *Server {
	if logger == nil {
		logger = shared.DefaultLogger
	}

	s := &Server{
		router:    mux.NewRouter(),
		sequencer: sequencer,
		metrics:   metrics,
		tracer:    tracer,
		health:    NewHealthManager(),
		logger:    logger,
	}
	s.health.RegisterChecker("commands", NewCommandHealthChecker(refresh.Programs(sequencer.Steps())))
	s.setupRoutes()
	s.http = &http.Server{Handler: s.router}
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	if s.tracer != nil {
		s.router.Use(s.tracer.TracingMiddleware)
	}
	s.router.Use(LoggingMiddleware(s.logger), RecoveryMiddleware(s.logger))
	if s.metrics != nil {
		s.router.Use(s.metrics.MetricsMiddleware)
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	s.router.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.health.HealthCheckHandler).Methods(http.MethodGet)
}

// Health exposes the server's health manager
func (s *Server) Health() *HealthManager {
	return s.health
}

// ServeHTTP lets the server be used directly as a handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr and serves until Shutdown is called
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener until Shutdown is called
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Panel HTTP server starting on %s", lis.Addr())

	err := s.http.Serve(lis)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight refreshes
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
