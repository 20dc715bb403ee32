package acl

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const (
	// maxResponseBody bounds a single remote snapshot.
	maxResponseBody = 4 << 20

	defaultQuotesPath    = "/quotes"
	defaultTextField     = "text"
	defaultCategoryField = "category"
)

// QuoteSourceConfig configures a QuoteSource.
type QuoteSourceConfig struct {
	// Client must have its BaseURL pointing at the quote server.
	Client *clients.Client

	// Path of the collection endpoint. Defaults to "/quotes".
	Path string

	// TextField and CategoryField name the JSON keys carrying each quote's
	// text and category. They default to "text" and "category".
	TextField     string
	CategoryField string

	Logger *slog.Logger
}

// QuoteSource fetches the server collection over HTTP.
// Implements ports.RemoteSource and ports.HealthChecker.
type QuoteSource struct {
	BaseAdapter

	path          string
	textField     string
	categoryField string
	logger        *slog.Logger
}

// NewQuoteSource creates an HTTP quote source. Panics if Client is nil.
func NewQuoteSource(cfg QuoteSourceConfig) *QuoteSource {
	if cfg.Client == nil {
		panic("QuoteSource: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteSource{
		BaseAdapter:   NewBaseAdapter(cfg.Client, cfg.Client.ServiceName()),
		path:          orDefault(cfg.Path, defaultQuotesPath),
		textField:     orDefault(cfg.TextField, defaultTextField),
		categoryField: orDefault(cfg.CategoryField, defaultCategoryField),
		logger:        logger,
	}
}

// remoteQuote is one element of the server's array; keys are configurable.
type remoteQuote map[string]json.RawMessage

// FetchQuotes returns the server's collection. Transport and status failures
// are domain.ErrUnavailable; malformed payloads are domain.ErrParse.
func (s *QuoteSource) FetchQuotes(ctx context.Context) (domain.Collection, error) {
	s.logger.DebugContext(ctx, "fetching remote quotes", slog.String("path", s.path))

	body, err := s.Get(ctx, s.path, "fetch quotes")
	if err != nil {
		return nil, err
	}

	items, err := DecodeResponse[[]remoteQuote](body, maxResponseBody)
	if err != nil {
		return nil, domain.NewParseError(domain.SourceRemote, err)
	}

	quotes, err := TranslateSlice(items, s.translate)
	if err != nil {
		return nil, err
	}

	s.logger.Log(ctx, logging.LevelTrace, "translated remote quotes", slog.Int("count", len(quotes)))

	return domain.Collection(quotes), nil
}

func (s *QuoteSource) translate(i int, ext *remoteQuote) (domain.Quote, error) {
	text, ok := stringField(*ext, s.textField)
	if !ok {
		return domain.Quote{}, domain.NewElementParseError(domain.SourceRemote, i, s.textField)
	}

	category, ok := stringField(*ext, s.categoryField)
	if !ok {
		return domain.Quote{}, domain.NewElementParseError(domain.SourceRemote, i, s.categoryField)
	}

	return domain.Quote{Text: text, Category: category}, nil
}

// stringField returns the trimmed string under key; false when the key is
// missing, not a string, or blank.
func stringField(item remoteQuote, key string) (string, bool) {
	raw, ok := item[key]
	if !ok {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}

	s = strings.TrimSpace(s)

	return s, s != ""
}

// Name implements ports.HealthChecker.
func (s *QuoteSource) Name() string {
	return s.ServiceName()
}

// Check reports whether the collection endpoint answers with 2xx.
func (s *QuoteSource) Check(ctx context.Context) error {
	body, err := s.Get(ctx, s.path, "health check")
	if err != nil {
		return err
	}

	return body.Close()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
