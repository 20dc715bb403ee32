//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	quotehttp "github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/notify"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// stack is a fully wired quotesync instance served by an httptest server.
type stack struct {
	server      *httptest.Server
	backend     storage.Backend
	store       *app.QuoteStore
	coordinator *app.SyncCoordinator
	signal      *notify.Signal
}

type stackOptions struct {
	// dir holds the database file. Empty means in-memory storage.
	dir    string
	driver string

	// remote serves the quote server's collection.
	remote ports.RemoteSource

	// remoteURL switches the remote to the HTTP source.
	remoteURL string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStack(opts stackOptions) (*stack, error) {
	logger := discardLogger()

	cfg := storage.Config{Driver: storage.DriverMemory}
	if opts.dir != "" {
		cfg = storage.Config{Driver: opts.driver, Path: filepath.Join(opts.dir, "quotes.db")}
	}

	backend, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	store := app.NewQuoteStore(app.QuoteStoreConfig{Storage: backend, Logger: logger})
	store.Load(context.Background())

	health := ports.NewHealthRegistry()
	if err := health.Register(backend); err != nil {
		return nil, err
	}

	source := opts.remote
	if opts.remoteURL != "" {
		client, err := clients.New(&clients.Config{
			BaseURL:     opts.remoteURL,
			ServiceName: "remote-quotes",
			Timeout:     2 * time.Second,
			Retry: config.RetryConfig{
				MaxAttempts:     2,
				InitialInterval: 10 * time.Millisecond,
				MaxInterval:     50 * time.Millisecond,
				Multiplier:      2,
			},
			Circuit: config.CircuitBreakerConfig{MaxFailures: 5, Timeout: time.Second, HalfOpenLimit: 1},
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}

		httpSource := acl.NewQuoteSource(acl.QuoteSourceConfig{Client: client, Logger: logger})
		if err := health.Register(httpSource); err != nil {
			return nil, err
		}

		source = httpSource
	}

	registry := telemetry.NewRegistry()

	signal, err := notify.NewSignal(registry)
	if err != nil {
		return nil, err
	}

	coordinator := app.NewSyncCoordinator(app.SyncCoordinatorConfig{
		Store:    store,
		Remote:   source,
		Notifier: signal,
		Interval: time.Hour,
		Logger:   logger,
	})

	gin.SetMode(gin.TestMode)

	engine := gin.New()
	quotehttp.SetupRouter(engine, quotehttp.RouterConfig{
		Logger:      logger,
		ServiceName: "quotesync-integration",
		HealthHandler: handlers.NewHealthHandler(health,
			handlers.NewBuildInfo("test", "test", "test"),
			telemetry.MetricsHandler(registry),
		),
		QuoteHandler: handlers.NewQuoteHandler(store),
		SyncHandler:  handlers.NewSyncHandler(coordinator, signal),
		Timeout:      5 * time.Second,
	})

	return &stack{
		server:      httptest.NewServer(engine),
		backend:     backend,
		store:       store,
		coordinator: coordinator,
		signal:      signal,
	}, nil
}

func (s *stack) URL() string {
	return s.server.URL
}

func (s *stack) Close() error {
	s.server.Close()
	return s.backend.Close()
}
