// Package main runs the quotesync service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/inbox"
	"github.com/jsamuelsen/quotesync/internal/adapters/notify"
	"github.com/jsamuelsen/quotesync/internal/adapters/remote"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Build-time variables, injected via ldflags:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", err))
		}
	}()

	registry := telemetry.NewRegistry()
	health := ports.NewHealthRegistry()

	kv, err := storage.Open(storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path})
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	defer func() {
		if err := kv.Close(); err != nil {
			logger.Error("closing storage", slog.Any("error", err))
		}
	}()

	if err := health.Register(kv); err != nil {
		return fmt.Errorf("registering storage health check: %w", err)
	}

	store := app.NewQuoteStore(app.QuoteStoreConfig{
		Storage: kv,
		Key:     cfg.Storage.Key,
		Logger:  logger,
	})
	store.Load(ctx)

	source, err := newRemoteSource(cfg, logger, health)
	if err != nil {
		return err
	}

	conflict, err := notify.NewSignal(registry)
	if err != nil {
		return fmt.Errorf("creating conflict notification: %w", err)
	}

	coordinator := app.NewSyncCoordinator(app.SyncCoordinatorConfig{
		Store:        store,
		Remote:       source,
		Notifier:     conflict,
		Interval:     cfg.Sync.Interval,
		CheckOnStart: cfg.Sync.CheckOnStart,
		Logger:       logger,
	})

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:      logger,
		ServiceName: cfg.App.Name,
		HealthHandler: handlers.NewHealthHandler(health,
			handlers.NewBuildInfo(Version, Commit, BuildTime),
			telemetry.MetricsHandler(registry),
		),
		QuoteHandler: handlers.NewQuoteHandler(store),
		SyncHandler:  handlers.NewSyncHandler(coordinator, conflict),
		Timeout:      http.DefaultRequestTimeout,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error { return coordinator.Run(ctx) })

	if cfg.Import.WatchDir != "" {
		watcher := inbox.New(inbox.Config{
			Dir:      cfg.Import.WatchDir,
			MaxSize:  cfg.Import.MaxSize,
			Debounce: cfg.Import.Debounce,
			Logger:   logger,
		}, store)

		g.Go(func() error { return watcher.Run(ctx) })
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

// newRemoteSource builds the source named by sync.source. The HTTP source is
// registered as a readiness check.
func newRemoteSource(cfg *config.Config, logger *slog.Logger, health *ports.DefaultHealthRegistry) (ports.RemoteSource, error) {
	if cfg.Sync.Source != config.SyncSourceHTTP {
		return remote.NewStatic(nil, cfg.Sync.StaticDelay), nil
	}

	client, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Remote.BaseURL,
		ServiceName: cfg.Services.Remote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating remote client: %w", err)
	}

	source := acl.NewQuoteSource(acl.QuoteSourceConfig{
		Client:        client,
		Path:          cfg.Services.Remote.Path,
		TextField:     cfg.Services.Remote.TextField,
		CategoryField: cfg.Services.Remote.CategoryField,
		Logger:        logger,
	})

	if err := health.Register(source); err != nil {
		return nil, fmt.Errorf("registering remote health check: %w", err)
	}

	return source, nil
}
