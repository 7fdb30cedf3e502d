// Package dedupe coalesces identical concurrent operations and caches
// their results, protecting the upstream payments API from duplicate
// work when a user double-sends the same lookup.
package dedupe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
)

const keyPrefix = "dedupe:"

// Deduper serves cached results for recently-computed fingerprints and
// guarantees at most one in-flight producer per fingerprint at any
// instant. The store alone cannot serialize "who gets to compute", so an
// in-process singleflight group arbitrates concurrent callers while the
// store extends the result's lifetime across requests.
type Deduper struct {
	store  kvstore.Store
	logger *slog.Logger

	flight singleflight.Group
}

// New creates a Deduper over store. If logger is nil the default slog
// logger is used.
func New(store kvstore.Store, logger *slog.Logger) *Deduper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduper{store: store, logger: logger}
}

// Do returns the cached result for fingerprint when one exists, otherwise
// runs fn and caches its result for ttl. Concurrent calls with the same
// fingerprint share a single fn invocation and all receive its result.
// A failed fn is never cached, so the next caller retries cleanly.
func (d *Deduper) Do(ctx context.Context, fingerprint string, ttl time.Duration, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	key := keyPrefix + fingerprint

	if cached, err := d.store.Get(ctx, key); err == nil {
		d.logger.Debug("dedupe: cache hit", "fingerprint", fingerprint)
		return cached, nil
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		// Store trouble must not break the underlying operation; fall
		// through to singleflight without the cache.
		d.logger.Warn("dedupe: cache read failed", "fingerprint", fingerprint, "err", err)
	}

	v, err, shared := d.flight.Do(fingerprint, func() (any, error) {
		// Another caller may have populated the cache while this one was
		// waiting for the flight slot.
		if cached, err := d.store.Get(ctx, key); err == nil {
			return cached, nil
		}

		result, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		if err := d.store.Set(ctx, key, result, ttl); err != nil {
			d.logger.Warn("dedupe: cache write failed", "fingerprint", fingerprint, "err", err)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		d.logger.Debug("dedupe: coalesced concurrent call", "fingerprint", fingerprint)
	}
	return v.([]byte), nil
}

// Invalidate drops the cached result for fingerprint, forcing the next
// caller to recompute. Used after a mutation makes a cached read stale.
func (d *Deduper) Invalidate(ctx context.Context, fingerprint string) error {
	return d.store.Delete(ctx, keyPrefix+fingerprint)
}
