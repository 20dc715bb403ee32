package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/adapters/notify"
	"github.com/jsamuelsen/quotesync/internal/adapters/remote"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	engine  *gin.Engine
	store   *app.QuoteStore
	storage *storage.Memory
	signal  *notify.Signal
	sync    *app.SyncCoordinator
}

func newFixture(t *testing.T, remoteQuotes domain.Collection) *fixture {
	t.Helper()

	mem := storage.NewMemory()
	store := app.NewQuoteStore(app.QuoteStoreConfig{Storage: mem})
	store.Load(context.Background())

	signal, err := notify.NewSignal(nil)
	require.NoError(t, err)

	coordinator := app.NewSyncCoordinator(app.SyncCoordinatorConfig{
		Store:    store,
		Remote:   remote.NewStatic(remoteQuotes, 0),
		Notifier: signal,
	})

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewQuoteHandler(store).RegisterRoutes(api)
	NewSyncHandler(coordinator, signal).RegisterRoutes(api)

	return &fixture{engine: engine, store: store, storage: mem, signal: signal, sync: coordinator}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())

	return v
}

func TestQuoteHandler_List(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantCount   int
		wantCat     string
		wantMessage string
	}{
		{"no filter", "/api/v1/quotes", 3, "all", ""},
		{"all", "/api/v1/quotes?category=all", 3, "all", ""},
		{"single category", "/api/v1/quotes?category=Motivation", 1, "Motivation", ""},
		{"unknown category", "/api/v1/quotes?category=Nope", 0, "Nope", dto.NoQuotesMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			w := f.do(t, http.MethodGet, tt.target, "")

			require.Equal(t, http.StatusOK, w.Code)

			list := decode[dto.QuoteList](t, w)
			assert.Equal(t, tt.wantCount, list.Count)
			assert.Len(t, list.Quotes, tt.wantCount)
			assert.Equal(t, tt.wantCat, list.Category)
			assert.Equal(t, tt.wantMessage, list.Message)
		})
	}
}

func TestQuoteHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid quote",
			body:       `{"text":"  Stay hungry.  ","category":"Wisdom"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "blank text",
			body:       `{"text":"   ","category":"Wisdom"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrorCodeValidation,
		},
		{
			name:       "missing category",
			body:       `{"text":"Stay hungry."}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrorCodeValidation,
		},
		{
			name:       "malformed body",
			body:       `{"text":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrorCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			w := f.do(t, http.MethodPost, "/api/v1/quotes", tt.body)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode[dto.ErrorResponse](t, w).Error.Code)
				assert.Len(t, f.store.Current(), 3)

				return
			}

			quote := decode[dto.Quote](t, w)
			assert.Equal(t, dto.Quote{Text: "Stay hungry.", Category: "Wisdom"}, quote)
			assert.Len(t, f.store.Current(), 4)

			stored, err := f.storage.Get(context.Background(), app.DefaultStorageKey)
			require.NoError(t, err)
			assert.Contains(t, stored, "Stay hungry.")
		})
	}
}

func TestQuoteHandler_Random(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/quotes/random?category=Inspiration", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Inspiration", decode[dto.Quote](t, w).Category)

	w = f.do(t, http.MethodGet, "/api/v1/quotes/random?category=Nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrorCodeNotFound, decode[dto.ErrorResponse](t, w).Error.Code)
}

func TestQuoteHandler_Categories(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/categories", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		[]string{"all", "Motivation", "Inspiration", "Perseverance"},
		decode[dto.CategoryList](t, w).Categories,
	)
}

func TestQuoteHandler_Export(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/quotes/export", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ExportFilename)

	got, err := domain.DecodeCollection(domain.SourceImport, w.Body.Bytes())
	require.NoError(t, err)
	assert.True(t, got.Equal(domain.DefaultQuotes()))
}

func TestQuoteHandler_Import(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCount  int
		wantDetail string
	}{
		{
			name:       "replaces the collection",
			body:       `[{"text":"One","category":"A"},{"text":"Two","category":"B"}]`,
			wantStatus: http.StatusOK,
			wantCount:  2,
		},
		{
			name:       "not an array",
			body:       `{"text":"One","category":"A"}`,
			wantStatus: http.StatusBadRequest,
			wantCount:  3,
		},
		{
			name:       "element without category",
			body:       `[{"text":"One"}]`,
			wantStatus: http.StatusBadRequest,
			wantCount:  3,
			wantDetail: "category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			w := f.do(t, http.MethodPost, "/api/v1/quotes/import", tt.body)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Len(t, f.store.Current(), tt.wantCount)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantCount, decode[dto.ImportResult](t, w).Imported)
				return
			}

			resp := decode[dto.ErrorResponse](t, w)
			assert.Equal(t, dto.ErrorCodeParse, resp.Error.Code)

			if tt.wantDetail != "" {
				assert.Contains(t, resp.Error.Details, tt.wantDetail)
			}
		})
	}
}

func TestQuoteHandler_ImportTooLarge(t *testing.T) {
	f := newFixture(t, nil)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 8)
		c.Next()
	})
	NewQuoteHandler(f.store).RegisterRoutes(engine.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/import",
		bytes.NewReader([]byte(`[{"text":"One","category":"A"}]`)))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Len(t, f.store.Current(), 3)
}

func TestSyncHandler_ConflictLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(app.SyncPhaseIdle), decode[dto.SyncStatus](t, w).Phase)

	w = f.do(t, http.MethodPost, "/api/v1/sync/check", "")
	require.Equal(t, http.StatusOK, w.Code)

	outcome := decode[dto.CheckOutcome](t, w)
	assert.Equal(t, string(app.CheckConflict), outcome.Result)
	assert.True(t, outcome.Status.ConflictPending)
	assert.True(t, outcome.Status.NotificationVisible)
	assert.Len(t, outcome.Status.RemoteQuotes, 2)

	// A pending conflict suppresses further checks.
	w = f.do(t, http.MethodPost, "/api/v1/sync/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(app.CheckSkipped), decode[dto.CheckOutcome](t, w).Result)

	w = f.do(t, http.MethodPost, "/api/v1/sync/resolve", `{"useRemote":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	status := decode[dto.SyncStatus](t, w)
	assert.False(t, status.ConflictPending)
	assert.False(t, status.NotificationVisible)
	assert.Empty(t, status.RemoteQuotes)
	assert.True(t, f.store.Current().Equal(remote.ServerQuotes()))
}

func TestSyncHandler_ResolveKeepLocal(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.sync.Check(context.Background())
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/v1/sync/resolve", `{"useRemote":false}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.store.Current().Equal(domain.DefaultQuotes()))
	assert.False(t, f.signal.Visible())
}

func TestSyncHandler_Resolve_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"no pending conflict", `{"useRemote":true}`, http.StatusConflict, dto.ErrorCodeConflict},
		{"missing choice", `{}`, http.StatusBadRequest, dto.ErrorCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			w := f.do(t, http.MethodPost, "/api/v1/sync/resolve", tt.body)

			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode[dto.ErrorResponse](t, w).Error.Code)
		})
	}
}

func TestSyncHandler_CheckInSync(t *testing.T) {
	f := newFixture(t, domain.DefaultQuotes())

	w := f.do(t, http.MethodPost, "/api/v1/sync/check", "")

	require.Equal(t, http.StatusOK, w.Code)

	outcome := decode[dto.CheckOutcome](t, w)
	assert.Equal(t, string(app.CheckInSync), outcome.Result)
	assert.False(t, outcome.Status.NotificationVisible)
	assert.NotNil(t, outcome.Status.LastCheckedAt)
}

func TestSyncHandler_CheckFailure(t *testing.T) {
	store := app.NewQuoteStore(app.QuoteStoreConfig{Storage: storage.NewMemory()})
	store.Load(context.Background())

	source := mocks.NewMockRemoteSource(t)
	source.EXPECT().FetchQuotes(mock.Anything).
		Return(nil, domain.NewUnavailableError("quote-server", "connection refused")).Once()

	signal, err := notify.NewSignal(nil)
	require.NoError(t, err)

	coordinator := app.NewSyncCoordinator(app.SyncCoordinatorConfig{
		Store:    store,
		Remote:   source,
		Notifier: signal,
	})

	engine := gin.New()
	h := NewSyncHandler(coordinator, signal)
	h.RegisterRoutes(engine.Group("/api/v1"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync/check", http.NoBody))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrorCodeUnavailable, decode[dto.ErrorResponse](t, w).Error.Code)

	state := coordinator.State()
	assert.Equal(t, app.SyncPhaseIdle, state.Phase)
	assert.NotEmpty(t, state.LastError)
	assert.False(t, signal.Visible())
}
