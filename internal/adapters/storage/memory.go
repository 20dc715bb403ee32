package storage

import (
	"context"
	"sync"
)

// Memory is a process-local store. Values are lost on exit.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the value for key, or a NotFoundError.
func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", keyNotFound(key)
	}

	return v, nil
}

// Set replaces the value for key.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	return nil
}

// Name implements ports.HealthChecker.
func (m *Memory) Name() string { return "storage" }

// Check always succeeds.
func (m *Memory) Check(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
