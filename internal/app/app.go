// Package app wires the daemon's adapters to the Orchestrator and exposes
// the gRPC control surface, mirroring the teacher's Application facade
// (internal/app/app.go) that owns bootstrap, Run, and cleanup.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"

	"github.com/lcalzada-xor/wired/internal/adapters/configstore"
	"github.com/lcalzada-xor/wired/internal/adapters/eapolio"
	"github.com/lcalzada-xor/wired/internal/adapters/netlink"
	"github.com/lcalzada-xor/wired/internal/adapters/routelink"
	"github.com/lcalzada-xor/wired/internal/adapters/sysclock"
	"github.com/lcalzada-xor/wired/internal/config"
	"github.com/lcalzada-xor/wired/internal/core/ports"
	grpcserver "github.com/lcalzada-xor/wired/internal/core/services/grpc"
	"github.com/lcalzada-xor/wired/internal/core/services/orchestrator"
	"github.com/lcalzada-xor/wired/internal/telemetry"
)

// Application is the Facade bootstrapping every adapter the Orchestrator
// needs and the gRPC control surface in front of it.
type Application struct {
	Config *config.Config

	transport      *netlink.GenetlinkTransport
	link           *routelink.Controller
	watcher        *routelink.Watcher
	store          *configstore.Store
	orch           *orchestrator.Orchestrator
	grpcServer     *grpc.Server
	tracerShutdown func(context.Context) error

	log *slog.Logger
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
		log:    slog.Default(),
	}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()
	shutdown, err := telemetry.InitTracer()
	if err != nil {
		app.log.Warn("tracer initialization failed, continuing without tracing", "err", err)
	} else {
		app.tracerShutdown = shutdown
	}

	transport, err := netlink.Dial(app.log)
	if err != nil {
		return fmt.Errorf("dial genetlink transport: %w", err)
	}
	app.transport = transport

	link, err := routelink.Dial()
	if err != nil {
		return fmt.Errorf("dial rtnetlink controller: %w", err)
	}
	app.link = link

	watcher, err := routelink.DialWatcher()
	if err != nil {
		return fmt.Errorf("dial rtnetlink watcher: %w", err)
	}
	app.watcher = watcher

	store, err := configstore.Open(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	app.store = store

	sink := telemetry.NewInstrumentedSink(nil)
	tracedTransport := telemetry.NewTracingTransport(app.transport)

	filters := orchestrator.Filters{
		AllowPatterns: app.Config.AllowPatterns,
		BlockPatterns: app.Config.BlockPatterns,
	}

	eapolNew := func(ifIndex int, mac [6]byte) (ports.EAPOLChannel, error) {
		return eapolio.Open(ifIndex, mac)
	}

	app.orch = orchestrator.New(
		tracedTransport,
		app.link,
		app.watcher,
		sysclock.New(),
		app.store,
		sink,
		eapolNew,
		filters,
		app.log,
	)

	app.grpcServer = grpcserver.NewServer(app.orch)

	return nil
}

// Run starts the application components and blocks until ctx is cancelled
// or a fatal error occurs.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting wired components...")

	if err := app.orch.Run(ctx); err != nil {
		return fmt.Errorf("orchestrator run: %w", err)
	}

	errChan := make(chan error, 1)

	go func() {
		slog.Info("gRPC control surface listening", "addr", app.Config.GRPCAddr)
		lis, err := net.Listen("tcp", app.Config.GRPCAddr)
		if err != nil {
			errChan <- fmt.Errorf("grpc listen error: %w", err)
			return
		}

		go func() {
			<-ctx.Done()
			app.grpcServer.GracefulStop()
		}()

		if err := app.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("grpc server error: %w", err)
		}
	}()

	slog.Info("wired ready. Press Ctrl+C to terminate.")

	select {
	case <-ctx.Done():
		slog.Info("termination signal received")
	case err := <-errChan:
		return err
	}

	return app.cleanup()
}

func (app *Application) cleanup() error {
	slog.Info("cleaning up resources...")

	if app.watcher != nil {
		app.watcher.Close()
	}
	if app.link != nil {
		app.link.Close()
	}
	if app.transport != nil {
		app.transport.Close()
	}
	if app.store != nil {
		app.store.Close()
	}
	if app.tracerShutdown != nil {
		if err := app.tracerShutdown(context.Background()); err != nil {
			app.log.Warn("tracer shutdown failed", "err", err)
		}
	}

	return nil
}
