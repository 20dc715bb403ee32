package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// DefaultStorageKey is the key the collection is persisted under.
const DefaultStorageKey = "quotes"

// QuoteStore owns the in-memory quote collection and keeps it identical to
// the value persisted in the key-value store. Mutations are serialized and
// only become visible once the save succeeded.
type QuoteStore struct {
	storage ports.KeyValueStore
	key     string
	logger  *slog.Logger

	mu     sync.RWMutex
	quotes domain.Collection
}

// QuoteStoreConfig contains configuration for the quote store.
type QuoteStoreConfig struct {
	// Storage is the persistence backend. Required.
	Storage ports.KeyValueStore

	// Key is the storage key. Defaults to DefaultStorageKey.
	Key string

	Logger *slog.Logger
}

// NewQuoteStore creates an empty store. Call Load before serving requests.
func NewQuoteStore(cfg QuoteStoreConfig) *QuoteStore {
	if cfg.Storage == nil {
		panic("app: QuoteStore requires a Storage")
	}

	key := cfg.Key
	if key == "" {
		key = DefaultStorageKey
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteStore{
		storage: cfg.Storage,
		key:     key,
		logger:  logger.With(slog.String("component", "app.QuoteStore")),
		quotes:  domain.Collection{},
	}
}

// Load reads the persisted collection and makes it current.
// An absent key, an unreadable store or a malformed document all fall back
// to the default seed set; Load itself never fails.
func (s *QuoteStore) Load(ctx context.Context) domain.Collection {
	logger := s.loggerFrom(ctx)

	loaded := s.read(ctx, logger)

	s.mu.Lock()
	s.quotes = loaded
	s.mu.Unlock()

	logger.InfoContext(ctx, "quotes loaded", slog.Int("count", len(loaded)))

	return loaded.Clone()
}

func (s *QuoteStore) read(ctx context.Context, logger *slog.Logger) domain.Collection {
	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if domain.IsNotFound(err) {
			logger.InfoContext(ctx, "no stored quotes, using defaults", slog.String("key", s.key))
		} else {
			logger.WarnContext(ctx, "reading stored quotes failed, using defaults",
				slog.String("key", s.key),
				slog.Any("error", err),
			)
		}

		return domain.DefaultQuotes()
	}

	quotes, err := domain.DecodeCollection(domain.SourceStorage, []byte(raw))
	if err != nil {
		logger.WarnContext(ctx, "stored quotes are corrupt, using defaults",
			slog.String("key", s.key),
			slog.Any("error", err),
		)

		return domain.DefaultQuotes()
	}

	return quotes
}

// Save persists c under the storage key and makes it the current collection.
// Saving the same collection twice leaves storage as a single save would.
// A quote with an empty field is rejected with a ValidationError and
// nothing is written.
func (s *QuoteStore) Save(ctx context.Context, c domain.Collection) error {
	next, err := c.Normalize()
	if err != nil {
		return fmt.Errorf("saving quotes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commitLocked(ctx, next)
}

// Add validates and appends a quote, then saves.
// Returns a ValidationError without touching the collection when either
// field is empty after trimming.
func (s *QuoteStore) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := domain.NewQuote(text, category)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("adding quote: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(s.quotes.Clone(), q)
	if err := s.commitLocked(ctx, next); err != nil {
		return domain.Quote{}, fmt.Errorf("adding quote: %w", err)
	}

	s.loggerFrom(ctx).InfoContext(ctx, "quote added",
		slog.String("category", q.Category),
		slog.Int("count", len(next)),
	)

	return q, nil
}

// ReplaceAll swaps the whole collection for a trimmed copy of c and saves.
// A quote with an empty field is rejected with a ValidationError and the
// collection is left untouched.
func (s *QuoteStore) ReplaceAll(ctx context.Context, c domain.Collection) error {
	next, err := c.Normalize()
	if err != nil {
		return fmt.Errorf("replacing quotes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commitLocked(ctx, next); err != nil {
		return fmt.Errorf("replacing quotes: %w", err)
	}

	s.loggerFrom(ctx).InfoContext(ctx, "quotes replaced", slog.Int("count", len(c)))

	return nil
}

// Import appends every quote of a JSON array document and saves once.
// A malformed document, or any element with a missing or empty field,
// is rejected as a whole with a ParseError and nothing is appended.
func (s *QuoteStore) Import(ctx context.Context, document []byte) (int, error) {
	imported, err := domain.DecodeCollection(domain.SourceImport, document)
	if err != nil {
		return 0, fmt.Errorf("importing quotes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(s.quotes.Clone(), imported...)
	if err := s.commitLocked(ctx, next); err != nil {
		return 0, fmt.Errorf("importing quotes: %w", err)
	}

	s.loggerFrom(ctx).InfoContext(ctx, "quotes imported",
		slog.Int("imported", len(imported)),
		slog.Int("count", len(next)),
	)

	return len(imported), nil
}

// Export returns the current collection as an indented JSON array.
func (s *QuoteStore) Export() ([]byte, error) {
	current := s.Current()

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exporting quotes: %w", err)
	}

	return data, nil
}

// Current returns a copy of the collection.
func (s *QuoteStore) Current() domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.quotes.Clone()
}

// Categories returns the distinct categories in first-seen order.
func (s *QuoteStore) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.quotes.Categories()
}

// Filter returns the quotes in category; "" or "all" returns everything.
func (s *QuoteStore) Filter(category string) domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.quotes.Filter(category)
}

// Random picks one quote from the filtered collection.
func (s *QuoteStore) Random(category string) (domain.Quote, error) {
	candidates := s.Filter(category)
	if len(candidates) == 0 {
		return domain.Quote{}, randomNotFound(category)
	}

	return candidates[rand.IntN(len(candidates))], nil //nolint:gosec // display selection only
}

func randomNotFound(category string) error {
	if category == "" || category == domain.AllCategories {
		return domain.NewNotFoundError("quote", "")
	}

	return domain.NewNotFoundError(fmt.Sprintf("quote in category %q", category), "")
}

// commitLocked persists next and, only on success, makes it current.
// Callers must hold s.mu for writing.
func (s *QuoteStore) commitLocked(ctx context.Context, next domain.Collection) error {
	data, err := domain.EncodeCollection(next)
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		s.loggerFrom(ctx).ErrorContext(ctx, "saving quotes failed",
			slog.String("key", s.key),
			slog.Any("error", err),
		)

		if domain.IsUnavailable(err) {
			return fmt.Errorf("saving quotes: %w", err)
		}

		return fmt.Errorf("saving quotes: %w", domain.NewUnavailableError(domain.SourceStorage, err.Error()))
	}

	s.quotes = next

	return nil
}

func (s *QuoteStore) loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := logging.Lookup(ctx); ok {
		return logger.With(slog.String("component", "app.QuoteStore"))
	}

	return s.logger
}
