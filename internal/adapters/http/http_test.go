package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/adapters/notify"
	"github.com/jsamuelsen/quotesync/internal/adapters/remote"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverConfig(maxRequestSize int64) *config.ServerConfig {
	return &config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		IdleTimeout:     30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxRequestSize:  maxRequestSize,
	}
}

func newTestServer(t *testing.T, maxRequestSize int64) *Server {
	t.Helper()

	store := app.NewQuoteStore(app.QuoteStoreConfig{Storage: storage.NewMemory()})
	store.Load(context.Background())

	signal, err := notify.NewSignal(nil)
	require.NoError(t, err)

	coordinator := app.NewSyncCoordinator(app.SyncCoordinatorConfig{
		Store:    store,
		Remote:   remote.NewStatic(nil, 0),
		Notifier: signal,
	})

	srv := New(serverConfig(maxRequestSize), discardLogger())
	SetupRouter(srv.Engine(), RouterConfig{
		Logger:        discardLogger(),
		ServiceName:   "quotesync-test",
		HealthHandler: handlers.NewHealthHandler(ports.NewHealthRegistry(), handlers.BuildInfo{Version: "test"}, nil),
		QuoteHandler:  handlers.NewQuoteHandler(store),
		SyncHandler:   handlers.NewSyncHandler(coordinator, signal),
		Timeout:       DefaultRequestTimeout,
	})

	return srv
}

func TestSetupRouter_Routes(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	routes := make(map[string]bool)
	for _, r := range srv.Engine().Routes() {
		routes[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /-/live",
		"GET /-/ready",
		"GET /-/build",
		"GET /api/v1/quotes",
		"POST /api/v1/quotes",
		"GET /api/v1/quotes/random",
		"GET /api/v1/quotes/export",
		"POST /api/v1/quotes/import",
		"GET /api/v1/categories",
		"GET /api/v1/sync",
		"POST /api/v1/sync/check",
		"POST /api/v1/sync/resolve",
	} {
		assert.True(t, routes[want], "missing route: %s", want)
	}
}

func TestSetupRouter_Middleware(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", http.NoBody)
	req.Header.Set(middleware.HeaderCorrelationID, "txn-1")

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "txn-1", w.Header().Get(middleware.HeaderCorrelationID))

	var list dto.QuoteList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Count)
}

func TestSetupRouter_NilHandlers(t *testing.T) {
	engine := gin.New()
	SetupRouter(engine, RouterConfig{Logger: discardLogger(), ServiceName: "quotesync-test"})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/live", http.NoBody))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_MaxBodySize(t *testing.T) {
	srv := newTestServer(t, 16)

	body := `[{"text":"A quote long enough to exceed the limit","category":"Long"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/import", strings.NewReader(body))

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeTooLarge, resp.Error.Code)
}

func TestServer_Addr(t *testing.T) {
	cfg := serverConfig(1)
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	assert.Equal(t, "0.0.0.0:8080", New(cfg, discardLogger()).Addr())
}

func TestServer_ServeUntilCancelled(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/-/live") //nolint:noctx // liveness check in test
		if err != nil {
			return false
		}
		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "server did not stop")
	}
}

func TestServer_RunListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	cfg := serverConfig(1)
	cfg.Port = ln.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert // tcp listener

	err = New(cfg, discardLogger()).Run(context.Background())
	require.ErrorContains(t, err, "listening on")
}
