package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	return entry
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Same(t, defaultLogger, FromContext(context.Background()))

	_, ok := Lookup(context.Background())
	assert.False(t, ok)
}

func TestLookup_ReturnsStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf)

	got, ok := Lookup(WithContext(context.Background(), logger))

	require.True(t, ok)
	assert.Same(t, logger, got)
}

func TestLookup_IgnoresNilLogger(t *testing.T) {
	_, ok := Lookup(WithContext(context.Background(), nil))
	assert.False(t, ok)
}

func TestContextIDs(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), jsonLogger(&buf))
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithTraceID(ctx, "trace-456")
	ctx = WithCorrelationID(ctx, "corr-789")

	FromContext(ctx).Info("with ids")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "trace-456", entry["trace_id"])
	assert.Equal(t, "corr-789", entry["correlation_id"])
}

func TestNewWithWriter_Formats(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		contains []string
	}{
		{name: "json", format: "json", contains: []string{`"msg":"hello"`, `"service_name":"quotesync"`}},
		{name: "text", format: "text", contains: []string{"msg=hello", "service_name=quotesync"}},
		{name: "pretty", format: "pretty", contains: []string{"hello", "service_name=quotesync"}},
		{name: "unknown falls back to json", format: "yaml", contains: []string{`"msg":"hello"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&Config{Level: "info", Format: tt.format, Service: "quotesync", Version: "1.0.0"}, &buf)

			logger.Info("hello")

			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{Level: "warn", Format: "json"}, &buf)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewWithWriter_TraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{Level: "trace", Format: "json"}, &buf)

	logger.Log(context.Background(), LevelTrace, "wire dump")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "TRACE", entry["level"])
}

func TestNewWithWriter_WritesRollingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "quotesync.log")

	var buf bytes.Buffer
	logger := NewWithWriter(&Config{
		Level:  "info",
		Format: "text",
		File:   FileConfig{Enabled: true, Path: path, MaxSizeMB: 1},
	}, &buf)

	logger.Info("to both", slog.String("password", "hunter2"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to both"`)
	assert.NotContains(t, string(data), "hunter2")
	assert.Contains(t, buf.String(), "to both")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestSlogToCharmLevel(t *testing.T) {
	tests := []struct {
		input slog.Level
		want  log.Level
	}{
		{LevelTrace, log.DebugLevel},
		{slog.LevelDebug, log.DebugLevel},
		{slog.LevelInfo, log.InfoLevel},
		{slog.LevelWarn, log.WarnLevel},
		{slog.LevelError, log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, slogToCharmLevel(tt.input))
		})
	}
}

type failingHandler struct {
	slog.Handler
	err error
}

func (h failingHandler) Handle(context.Context, slog.Record) error { //nolint:gocritic // slog.Handler interface
	return h.err
}

func TestMultiHandler(t *testing.T) {
	var first, second bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&first, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&second, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With(slog.String("component", "sync")).WithGroup("detail")

	logger.Info("info only", slog.Int("n", 1))
	assert.Contains(t, first.String(), `"component":"sync"`)
	assert.Contains(t, first.String(), `"detail":{"n":1}`)
	assert.Empty(t, second.String())

	logger.Error("both")
	assert.Contains(t, second.String(), "both")
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	base := slog.NewJSONHandler(&bytes.Buffer{}, nil)

	h := NewMultiHandler(failingHandler{base, errA}, failingHandler{base, errB})
	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "x", 0))

	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestRedaction(t *testing.T) {
	tests := []struct {
		field  string
		value  string
		redact bool
	}{
		{"password", "super-secret", true},
		{"token", "my-secret-token", true},
		{"api_key", "api-key-value", true},
		{"authorization", "Bearer abc123xyz456", true},
		{"secret_config", "sensitive-data", true},
		{"category", "Server", false},
		{"text", "Simplicity is prerequisite for reliability.", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: NewReplaceAttr()}))

			logger.Info("test", slog.String(tt.field, tt.value))

			assert.Contains(t, buf.String(), tt.field)
			if tt.redact {
				assert.NotContains(t, buf.String(), tt.value)
			} else {
				assert.Contains(t, buf.String(), tt.value)
			}
		})
	}
}

func TestRedaction_PrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{Level: "info", Format: "pretty"}, &buf)

	logger.With(slog.String("token", "abc-123")).Info("login", slog.String("password", "hunter2"))

	assert.Contains(t, buf.String(), "login")
	assert.NotContains(t, buf.String(), "abc-123")
	assert.NotContains(t, buf.String(), "hunter2")
}
