package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cotcli/internal/config"
	"cotcli/internal/infrastructure"
	"cotcli/internal/services"
	handlers "cotcli/internal/transport/http"
)

// Application represents the API application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	Router        http.Handler
	Server        *http.Server
	Store         *services.SnapshotStore
	OTelProviders *infrastructure.OTelProviders

	serverErr chan error
}

// NewApplication builds every component from cfg without starting any.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return nil, err
	}
	paths.LogPathResolution(logger)

	markets, err := config.LoadMarkets(paths.Markets)
	if err != nil {
		return nil, err
	}

	providers, err := infrastructure.InitializeOTel(cfg.OTel, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.NewMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	store := services.NewSnapshotStore(paths, metrics, logger)
	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:    logger,
		Markets:   services.NewMarketService(store, markets, logger),
		Health:    services.NewHealthService(infrastructure.ServiceVersion, store),
		Providers: providers,
		Metrics:   metrics,
		RateLimit: cfg.Server.RateLimit,
	})

	return &Application{
		Config: cfg,
		Paths:  paths,
		Logger: logger,
		Router: router,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		Store:         store,
		OTelProviders: providers,
		serverErr:     make(chan error, 1),
	}, nil
}

// Start loads the snapshot, starts the reload loop and begins serving on
// ln, or on the configured address when ln is nil.
func (a *Application) Start(ctx context.Context, ln net.Listener) error {
	if _, err := a.Store.Reload(ctx); err != nil {
		// the API still serves /healthz and reports degraded until a run publishes
		a.Logger.WarnContext(ctx, "no snapshot loaded at startup", slog.String("error", err.Error()))
	}
	go a.Store.Watch(ctx, a.Config.Server.ReloadInterval)

	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", a.Server.Addr); err != nil {
			return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
		}
	}
	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serverErr <- err
		}
	}()

	a.Logger.InfoContext(ctx, "api server started",
		slog.String("address", ln.Addr().String()),
		slog.String("version", infrastructure.ServiceVersion))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown error: %w", err))
	}
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled, an interrupt arrives or the server
// fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, nil); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("received shutdown signal")
	case serveErr = <-a.serverErr:
		a.Logger.Error("server error", slog.String("error", serveErr.Error()))
	}

	// ctx is done here; shut down on a fresh one
	return errors.Join(serveErr, a.Stop(context.Background()))
}
