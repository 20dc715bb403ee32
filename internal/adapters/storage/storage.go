// Package storage provides key-value backends for the quote collection.
// Each backend implements ports.KeyValueStore and ports.HealthChecker.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Supported drivers.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

const (
	// defaultOpenTimeout bounds how long opening a file-backed store waits for its lock.
	defaultOpenTimeout = 2 * time.Second

	dirPerm  = 0o755
	filePerm = 0o600
)

// Backend is a key-value store that can report its own health.
type Backend interface {
	ports.KeyValueStore
	ports.HealthChecker
}

// Config selects and configures a backend.
type Config struct {
	// Driver is one of DriverBolt, DriverSQLite or DriverMemory.
	Driver string

	// Path is the database file for file-backed drivers.
	Path string

	// OpenTimeout bounds the wait for the file lock. Defaults to 2s.
	OpenTimeout time.Duration
}

// Open creates the backend named by cfg.Driver.
func Open(cfg Config) (Backend, error) {
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}

	switch cfg.Driver {
	case DriverBolt:
		return OpenBolt(cfg.Path, cfg.OpenTimeout)
	case DriverSQLite:
		return OpenSQLite(cfg.Path)
	case DriverMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ensureDir creates the parent directory of a database file.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	return nil
}

func keyNotFound(key string) error {
	return domain.NewNotFoundError("key", key)
}

func unavailable(driver string, err error) error {
	return fmt.Errorf("%w: %w", domain.NewUnavailableError(domain.SourceStorage, driver), err)
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	return nil
}
