package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/api"
	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/executor"
	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/grpcPack"
	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/refresh"
	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/shared"

	"github.com/spf13/cobra"
)

const (
	serviceName     = "usbrefresh"
	shutdownTimeout = 10 * time.Second
)

var (
	panelAddress   string
	grpcAddress    string
	jaegerEndpoint string
	logLevel       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the USB refresh control panel",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&panelAddress, "address", "a", "0.0.0.0:5000", "Address for the panel to listen on")
	serveCmd.Flags().StringVar(&grpcAddress, "grpc-address", "", "Address for the gRPC health service (disabled when empty)")
	serveCmd.Flags().StringVar(&jaegerEndpoint, "jaeger-endpoint", "", "Jaeger collector endpoint (tracing disabled when empty)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

// panel bundles the long-lived servers created by the serve command
type panel struct {
	http   *api.Server
	grpc   *grpcPack.Server
	tracer *api.Tracer
	logger *shared.Logger
}

func newPanel(level string, jaeger string, withGRPC bool) (*panel, error) {
	lvl, err := shared.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := shared.NewLogger(lvl)

	tracer, err := api.NewTracer(serviceName, jaeger)
	if err != nil {
		return nil, err
	}

	metrics := api.NewMetrics()
	sequencer := refresh.NewSequencer(executor.NewOSExecutor(), refresh.DefaultSteps(), logger, metrics)

	p := &panel{
		http:   api.NewServer(sequencer, metrics, tracer, logger),
		tracer: tracer,
		logger: logger,
	}
	if withGRPC {
		p.grpc = grpcPack.NewServer(logger)
	}
	return p, nil
}

func (p *panel) shutdown(ctx context.Context) {
	if p.grpc != nil {
		if err := p.grpc.Shutdown(ctx); err != nil {
			p.logger.Error("Error during gRPC shutdown: %v", err)
		}
	}
	if err := p.http.Shutdown(ctx); err != nil {
		p.logger.Error("Error during shutdown: %v", err)
	}
	if err := p.tracer.Shutdown(ctx); err != nil {
		p.logger.Error("Error flushing traces: %v", err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := newPanel(logLevel, jaegerEndpoint, grpcAddress != "")
	if err != nil {
		return err
	}

	if !p.http.Health().Healthy(cmd.Context()) {
		p.logger.Warn("Some refresh programs are missing; see /health")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := p.http.Start(panelAddress); err != nil {
			p.logger.Error("Server error: %v", err)
			cancel()
		}
	}()

	if p.grpc != nil {
		go func() {
			if err := p.grpc.Start(grpcAddress); err != nil {
				p.logger.Error("gRPC server error: %v", err)
				cancel()
			}
		}()
	}

	select {
	case sig := <-sigChan:
		p.logger.Info("Received signal %v, initiating shutdown", sig)
	case <-ctx.Done():
		p.logger.Info("Shutting down due to error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	p.shutdown(shutdownCtx)
	return nil
}
