// Package server wires the gateway service together and runs its HTTP and
// gRPC health listeners until the process is signalled.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/health"
	"github.com/dmitrijs2005/bkashgate/internal/httpapi"
	"github.com/dmitrijs2005/bkashgate/internal/logging"
	"github.com/dmitrijs2005/bkashgate/internal/telemetry"
)

const ServiceName = "bkashgate"

// Version is stamped at build time with -ldflags "-X ...server.Version=...".
var Version = "dev"

var initTracer = telemetry.InitTracer

type App struct {
	config         *config.Config
	logger         logging.Logger
	components     *Components
	http           *httpapi.Server
	health         *health.Server
	shutdownTracer telemetry.ShutdownFunc
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shutdown, err := initTracer(ctx, ServiceName, Version, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing init error: %w", err)
	}

	c, err := Build(ctx, cfg, logger)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	ready := func(ctx context.Context) error { return c.LedgerDB.PingContext(ctx) }

	h, err := httpapi.NewHandler(c.Service, c.Ledger, cfg, logger, httpapi.WithReadiness(ready))
	if err != nil {
		_ = c.Close()
		_ = shutdown(ctx)
		return nil, err
	}
	router := httpapi.NewRouter(h, c.Registry, ServiceName)

	return &App{
		config:         cfg,
		logger:         logger,
		components:     c,
		http:           httpapi.NewServer(cfg.HTTPAddr, router, logger),
		health:         health.NewServer(cfg.GRPCHealthAddr, logger, health.WithCheck("ledger", health.Checker(ready))),
		shutdownTracer: shutdown,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runServer runs one listener; its failure stops the whole app.
func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped with error", "server", name, "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or a listener fails,
// then releases every resource.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", Version, "sandbox", app.config.Sandbox)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "grpc_health", app.health.Run)
	}()

	wg.Wait()

	// ctx is done here; use a fresh one for cleanup.
	cleanup := context.Background()
	if err := app.components.Close(); err != nil {
		app.logger.Error(cleanup, "close resources", "error", err)
	}
	if err := app.shutdownTracer(cleanup); err != nil {
		app.logger.Error(cleanup, "tracer shutdown", "error", err)
	}
	app.logger.Info(cleanup, "App stopped")
}
