// Package inbox imports quote documents dropped into a watched directory.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

const (
	// ImportedSuffix is appended to files that were imported.
	ImportedSuffix = ".imported"

	// FailedSuffix is appended to files that could not be imported.
	FailedSuffix = ".failed"

	defaultDebounce = 500 * time.Millisecond
	defaultMaxSize  = 1 << 20
)

// Importer appends the quotes of a serialized document to the collection.
// Satisfied by *app.QuoteStore.
type Importer interface {
	Import(ctx context.Context, data []byte) (int, error)
}

// Config configures a Watcher.
type Config struct {
	Dir      string
	MaxSize  int64
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher imports *.json files written to Dir. A file is processed once no
// event has touched it for Debounce, then renamed with ImportedSuffix or
// FailedSuffix.
type Watcher struct {
	dir      string
	maxSize  int64
	debounce time.Duration
	importer Importer
	logger   *slog.Logger
}

// New creates a watcher. Panics if importer is nil.
func New(cfg Config, importer Importer) *Watcher {
	if importer == nil {
		panic("inbox.Watcher: Importer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		dir:      cfg.Dir,
		maxSize:  cfg.MaxSize,
		debounce: cfg.Debounce,
		importer: importer,
		logger:   logger.With(slog.String("component", "inbox"), slog.String("dir", cfg.Dir)),
	}

	if w.maxSize <= 0 {
		w.maxSize = defaultMaxSize
	}

	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}

	return w
}

// Run watches the directory until ctx is cancelled. Files already present
// when Run starts are imported first, in name order.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("creating inbox directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.logger.InfoContext(ctx, "inbox watcher started")

	for _, path := range w.pending() {
		w.process(ctx, path)
	}

	return w.loop(ctx, fw)
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) error {
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	touched := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "inbox watcher stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			if isDocument(event.Name) {
				touched[event.Name] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logger.WarnContext(ctx, "file watcher error", slog.Any("error", err))

		case now := <-ticker.C:
			for path, last := range touched {
				if now.Sub(last) < w.debounce {
					continue
				}

				delete(touched, path)
				w.process(ctx, path)
			}
		}
	}
}

// pending lists documents already sitting in the inbox.
func (w *Watcher) pending() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}

	var out []string

	for _, e := range entries {
		if !e.IsDir() && isDocument(e.Name()) {
			out = append(out, filepath.Join(w.dir, e.Name()))
		}
	}

	slices.Sort(out)

	return out
}

// process imports one file and renames it by outcome. Storage outages leave
// the file in place so the next start retries it.
func (w *Watcher) process(ctx context.Context, path string) {
	logger := w.logger.With(slog.String("file", filepath.Base(path)))

	data, err := w.read(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}

	if err == nil {
		var n int

		n, err = w.importer.Import(ctx, data)
		if err == nil {
			logger.InfoContext(ctx, "imported quotes", slog.Int("count", n))
			w.rename(ctx, logger, path, ImportedSuffix)

			return
		}
	}

	if domain.IsUnavailable(err) {
		logger.WarnContext(ctx, "import deferred, storage unavailable", slog.Any("error", err))
		return
	}

	logger.WarnContext(ctx, "import failed", slog.Any("error", err))
	w.rename(ctx, logger, path, FailedSuffix)
}

func (w *Watcher) read(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the watched directory
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, w.maxSize+1))
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > w.maxSize {
		return nil, domain.NewValidationError("file", fmt.Sprintf("exceeds %d bytes", w.maxSize))
	}

	return data, nil
}

func (w *Watcher) rename(ctx context.Context, logger *slog.Logger, path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		logger.ErrorContext(ctx, "renaming processed file", slog.Any("error", err))
	}
}

func isDocument(name string) bool {
	base := filepath.Base(name)

	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".json")
}
