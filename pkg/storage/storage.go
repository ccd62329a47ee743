package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a backend that has been closed.
var ErrClosed = errors.New("storage: backend is closed")

// Backend is a string key/value store.
type Backend interface {
	// GetItem returns the value stored under key.
	// A missing key returns ("", false, nil).
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem stores value under key, overwriting any previous value.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	// Keys returns the stored keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Close closes b if it implements io.Closer.
func Close(b Backend) error {
	if c, ok := b.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
