package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// recordingImporter decodes like the store does and remembers every import.
type recordingImporter struct {
	mu      sync.Mutex
	imports []domain.Collection
	err     error
}

func (r *recordingImporter) Import(_ context.Context, data []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return 0, r.err
	}

	c, err := domain.DecodeCollection(domain.SourceImport, data)
	if err != nil {
		return 0, err
	}

	r.imports = append(r.imports, c)

	return len(c), nil
}

func (r *recordingImporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.imports)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestNew_PanicsWithoutImporter(t *testing.T) {
	assert.PanicsWithValue(t, "inbox.Watcher: Importer is required", func() {
		New(Config{Dir: t.TempDir()}, nil)
	})
}

func TestNew_Defaults(t *testing.T) {
	w := New(Config{Dir: t.TempDir()}, &recordingImporter{})

	assert.Equal(t, int64(defaultMaxSize), w.maxSize)
	assert.Equal(t, defaultDebounce, w.debounce)
}

func TestWatcher_Process(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		importErr   error
		maxSize     int64
		wantSuffix  string
		wantImports int
	}{
		{
			name:        "valid document",
			content:     `[{"text":"a","category":"b"}]`,
			wantSuffix:  ImportedSuffix,
			wantImports: 1,
		},
		{
			name:       "malformed json",
			content:    `{"text":"a"`,
			wantSuffix: FailedSuffix,
		},
		{
			name:       "element missing category",
			content:    `[{"text":"a"}]`,
			wantSuffix: FailedSuffix,
		},
		{
			name:       "too large",
			content:    `[{"text":"a long enough quote","category":"b"}]`,
			maxSize:    8,
			wantSuffix: FailedSuffix,
		},
		{
			name:       "storage unavailable leaves file",
			content:    `[{"text":"a","category":"b"}]`,
			importErr:  domain.NewUnavailableError(domain.SourceStorage, "disk full"),
			wantSuffix: "",
		},
		{
			name:       "other import error",
			content:    `[]`,
			importErr:  errors.New("boom"),
			wantSuffix: FailedSuffix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "quotes.json", tt.content)
			imp := &recordingImporter{err: tt.importErr}
			w := New(Config{Dir: dir, MaxSize: tt.maxSize}, imp)

			w.process(context.Background(), path)

			assert.FileExists(t, path+tt.wantSuffix)
			assert.Equal(t, tt.wantImports, imp.count())
		})
	}
}

func TestWatcher_ProcessMissingFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	imp := &recordingImporter{}

	New(Config{Dir: dir}, imp).process(context.Background(), filepath.Join(dir, "gone.json"))

	assert.Zero(t, imp.count())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatcher_PendingListsDocumentsOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", "[]")
	writeFile(t, dir, "a.JSON", "[]")
	writeFile(t, dir, "c.json.imported", "[]")
	writeFile(t, dir, ".hidden.json", "[]")
	writeFile(t, dir, "notes.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o750))

	got := New(Config{Dir: dir}, &recordingImporter{}).pending()

	assert.Equal(t, []string{filepath.Join(dir, "a.JSON"), filepath.Join(dir, "b.json")}, got)
}

func TestWatcher_Run(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	existing := writeFile(t, dir, "existing.json", `[{"text":"old","category":"x"}]`)

	imp := &recordingImporter{}
	w := New(Config{Dir: dir, Debounce: 20 * time.Millisecond}, imp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(existing + ImportedSuffix)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond, "existing file imported on start")

	dropped := writeFile(t, dir, "dropped.json", `[{"text":"new","category":"y"},{"text":"newer","category":"y"}]`)
	bad := writeFile(t, dir, "bad.json", `nope`)

	require.Eventually(t, func() bool {
		_, errOK := os.Stat(dropped + ImportedSuffix)
		_, errBad := os.Stat(bad + FailedSuffix)
		return errOK == nil && errBad == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, imp.count())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_RunCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "inbox")
	w := New(Config{Dir: dir, Debounce: 20 * time.Millisecond}, &recordingImporter{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		info, err := os.Stat(dir)
		return err == nil && info.IsDir()
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
