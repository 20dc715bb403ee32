// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// KeyValueStore is the persistence contract for the quote collection.
// Values are opaque strings; writes replace the whole value atomically.
//
// Example usage in application layer:
//
//	raw, err := kv.Get(ctx, "quotes")
//	if domain.IsNotFound(err) {
//	    // fall back to defaults
//	}
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key has never been set.
	Get(ctx context.Context, key string) (string, error)

	// Set replaces the value stored under key.
	// Returns domain.ErrUnavailable if the backing store cannot be written.
	Set(ctx context.Context, key, value string) error

	// Close releases the underlying resources.
	Close() error
}

// RemoteSource supplies snapshots of the "server" quote collection.
//
// Key considerations:
//   - Handle timeouts via context deadline
//   - Map transport failures to domain.ErrUnavailable
//   - Translate external payloads to domain.Collection
type RemoteSource interface {
	// FetchQuotes returns the remote collection as of now.
	FetchQuotes(ctx context.Context) (domain.Collection, error)
}

// ConflictNotifier shows or hides the conflict affordance for the user.
type ConflictNotifier interface {
	// SetConflict makes the notification visible (true) or hidden (false).
	SetConflict(ctx context.Context, visible bool)
}
