// Package ratelimit provides sliding-window admission control per user
// and per conversation group, layered on the key-value store.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
)

// Rule is the admission configuration for one command category.
type Rule struct {
	// Window is the sliding interval over which events are counted.
	Window time.Duration
	// MaxPerUser caps events from one user within the window.
	MaxPerUser int
	// MaxPerGroup caps events across the whole group within the window.
	// Zero disables the group cap.
	MaxPerGroup int
	// BlockDuration, when non-zero, sets an explicit block marker on a
	// per-user denial that short-circuits all future checks until it
	// expires, independent of the sliding window.
	BlockDuration time.Duration
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// Blocked reports that the denial came from an explicit block marker
	// rather than the sliding window.
	Blocked bool
	// RetryAfter hints how long the caller should wait before retrying.
	RetryAfter time.Duration
}

// Limiter admits or rejects requests per (group, user, category).
// Timestamp lists and block markers carry no sensitive data and are
// stored in plaintext.
type Limiter struct {
	store  kvstore.Store
	rules  map[string]Rule
	logger *slog.Logger
	now    func() time.Time
}

// DefaultRule applies when no rule is configured for a category.
var DefaultRule = Rule{
	Window:      time.Minute,
	MaxPerUser:  30,
	MaxPerGroup: 120,
}

// New creates a Limiter with the given per-category rules.
func New(store kvstore.Store, rules map[string]Rule, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = map[string]Rule{}
	}
	return &Limiter{store: store, rules: rules, logger: logger, now: time.Now}
}

// Allow checks and records one event for (group, user, category).
// On admission the current timestamp is appended to both the per-user and
// per-group lists. On any store failure the request is admitted: keeping
// the assistant responsive during an infrastructure incident matters more
// than strict limiting.
func (l *Limiter) Allow(ctx context.Context, group, user, category string) Decision {
	rule, ok := l.rules[category]
	if !ok {
		rule = DefaultRule
	}

	now := l.now()
	blockKey := fmt.Sprintf("rate:block:%s:%s", group, user)
	userKey := fmt.Sprintf("rate:%s:%s:%s", group, user, category)
	groupKey := fmt.Sprintf("rate:%s:*:%s", group, category)

	// An explicit block marker overrides everything else.
	blocked, err := l.store.Exists(ctx, blockKey)
	if err != nil {
		l.logger.Warn("ratelimit: block check failed, failing open", "user", user, "err", err)
		return Decision{Allowed: true}
	}
	if blocked {
		return Decision{Blocked: true, RetryAfter: rule.BlockDuration}
	}

	userStamps, err := l.readStamps(ctx, userKey, now, rule.Window)
	if err != nil {
		l.logger.Warn("ratelimit: user window read failed, failing open", "user", user, "err", err)
		return Decision{Allowed: true}
	}
	groupStamps, err := l.readStamps(ctx, groupKey, now, rule.Window)
	if err != nil {
		l.logger.Warn("ratelimit: group window read failed, failing open", "group", group, "err", err)
		return Decision{Allowed: true}
	}

	if rule.MaxPerUser > 0 && len(userStamps) >= rule.MaxPerUser {
		if rule.BlockDuration > 0 {
			if err := l.store.Set(ctx, blockKey, []byte{1}, rule.BlockDuration); err != nil {
				l.logger.Warn("ratelimit: failed to set block marker", "user", user, "err", err)
			}
		}
		l.logger.Info("ratelimit: user limit reached",
			"group", group, "user", user, "category", category, "count", len(userStamps))
		return Decision{RetryAfter: retryAfter(userStamps, now, rule.Window)}
	}

	if rule.MaxPerGroup > 0 && len(groupStamps) >= rule.MaxPerGroup {
		l.logger.Info("ratelimit: group limit reached",
			"group", group, "category", category, "count", len(groupStamps))
		return Decision{RetryAfter: retryAfter(groupStamps, now, rule.Window)}
	}

	// Admitted: append the event to both lists. The kvstore TTL is a
	// backstop; pruning above is what enforces the window.
	ttl := rule.Window + 30*time.Second
	l.writeStamps(ctx, userKey, append(userStamps, now.UnixMilli()), ttl)
	l.writeStamps(ctx, groupKey, append(groupStamps, now.UnixMilli()), ttl)

	return Decision{Allowed: true}
}

// readStamps loads the timestamp list for key and prunes entries older
// than now - window.
func (l *Limiter) readStamps(ctx context.Context, key string, now time.Time, window time.Duration) ([]int64, error) {
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stamps []int64
	if err := json.Unmarshal(raw, &stamps); err != nil {
		// A malformed list is treated as empty rather than an error.
		l.logger.Warn("ratelimit: malformed timestamp list reset", "key", key, "err", err)
		return nil, nil
	}

	cutoff := now.Add(-window).UnixMilli()
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	return kept, nil
}

func (l *Limiter) writeStamps(ctx context.Context, key string, stamps []int64, ttl time.Duration) {
	raw, err := json.Marshal(stamps)
	if err != nil {
		l.logger.Warn("ratelimit: failed to encode timestamp list", "key", key, "err", err)
		return
	}
	if err := l.store.Set(ctx, key, raw, ttl); err != nil {
		l.logger.Warn("ratelimit: failed to write timestamp list", "key", key, "err", err)
	}
}

// retryAfter computes when the oldest in-window event falls out of the
// window.
func retryAfter(stamps []int64, now time.Time, window time.Duration) time.Duration {
	if len(stamps) == 0 {
		return 0
	}
	oldest := stamps[0]
	for _, ts := range stamps[1:] {
		if ts < oldest {
			oldest = ts
		}
	}
	wait := time.UnixMilli(oldest).Add(window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}
