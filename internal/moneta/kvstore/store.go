// Package kvstore provides the key-value substrate shared by the
// confirmation, deduplication, and rate-limiting layers: opaque keys,
// opaque byte values, and per-key expiry.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or expired.
// Callers should use errors.Is to distinguish this expected case from
// real storage errors.
var ErrNotFound = errors.New("key not found")

// Store is the contract all backends implement. Implementations treat
// keys independently; there are no multi-key transactions.
type Store interface {
	// Set writes value under key. A zero ttl means the key never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key, or ErrNotFound when the key
	// is absent or its ttl has elapsed. An expired key is deleted as a
	// side effect of the read.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present and not expired.
	Exists(ctx context.Context, key string) (bool, error)

	Close() error
}
