package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneta-bot/moneta/common/crypto"
)

// Encrypted layers authenticated encryption on top of a Store. Values are
// JSON-serialized and sealed with AES-256-GCM before they reach the
// backend, so confirmation records, cached sessions, and preferences are
// never persisted in the clear.
//
// A read that fails to authenticate, decrypt, or decode deletes the key
// and reports ErrNotFound. Partially-trusted plaintext is never returned,
// and a corrupted record cannot poison every subsequent read of its key.
type Encrypted struct {
	store  Store
	cipher *crypto.Cipher
}

// NewEncrypted wraps store with the given cipher.
func NewEncrypted(store Store, cipher *crypto.Cipher) *Encrypted {
	return &Encrypted{store: store, cipher: cipher}
}

// SetEncrypted serializes v to JSON, seals it, and writes it under key.
func (e *Encrypted) SetEncrypted(ctx context.Context, key string, v any, ttl time.Duration) error {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encrypted set %q: marshal: %w", key, err)
	}

	blob, err := e.cipher.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("encrypted set %q: seal: %w", key, err)
	}

	return e.store.Set(ctx, key, blob, ttl)
}

// GetEncrypted reads, opens, and decodes the value under key into out.
// Any failure past the raw read self-heals by deleting the key and
// returning ErrNotFound.
func (e *Encrypted) GetEncrypted(ctx context.Context, key string, out any) error {
	blob, err := e.store.Get(ctx, key)
	if err != nil {
		return err
	}

	plaintext, err := e.cipher.Open(blob)
	if err != nil {
		e.heal(ctx, key, "decrypt", err)
		return ErrNotFound
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		e.heal(ctx, key, "decode", err)
		return ErrNotFound
	}

	return nil
}

// Delete removes key from the underlying store.
func (e *Encrypted) Delete(ctx context.Context, key string) error {
	return e.store.Delete(ctx, key)
}

// Exists reports whether key is present in the underlying store. It does
// not attempt decryption.
func (e *Encrypted) Exists(ctx context.Context, key string) (bool, error) {
	return e.store.Exists(ctx, key)
}

func (e *Encrypted) heal(ctx context.Context, key, stage string, cause error) {
	slog.Warn("kvstore: unreadable encrypted record deleted",
		"key", key, "stage", stage, "err", cause)
	if err := e.store.Delete(ctx, key); err != nil {
		slog.Warn("kvstore: failed to delete unreadable record", "key", key, "err", err)
	}
}
