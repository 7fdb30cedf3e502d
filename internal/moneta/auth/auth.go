// Package auth defines the session and admin-status collaborators the
// command engine depends on, plus an encrypted session cache.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
)

// Session is an authenticated link between a chat identity and a
// payments account. Many commands run without one.
type Session struct {
	AccountID string            `json:"account_id"`
	SubjectID string            `json:"subject_id"`
	AuthToken string            `json:"auth_token,omitempty"`
	Locale    string            `json:"locale,omitempty"`
	Verified  bool              `json:"verified"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Resolver looks up the session for a chat subject. A nil session with a
// nil error means the subject is anonymous.
type Resolver interface {
	Lookup(ctx context.Context, subjectID string) (*Session, error)
}

// AdminChecker reports whether a chat subject has operator privileges.
// Consulted once per request and stamped into the command context.
type AdminChecker interface {
	IsAdmin(ctx context.Context, subjectID string) (bool, error)
}

// Accounts manages the link between a chat subject and a payments
// account.
type Accounts interface {
	// BeginLink starts account linking for subject; a verification code
	// is delivered out of band to the given phone number.
	BeginLink(ctx context.Context, subjectID, phone string) error
	// Unlink severs the subject's account link and invalidates the
	// session.
	Unlink(ctx context.Context, subjectID string) error
}

// StaticAdmins is an AdminChecker backed by a fixed allowlist from
// configuration.
type StaticAdmins []string

func (s StaticAdmins) IsAdmin(_ context.Context, subjectID string) (bool, error) {
	for _, id := range s {
		if id == subjectID {
			return true, nil
		}
	}
	return false, nil
}

// CachingResolver caches successful lookups in the encrypted store so a
// burst of messages from one subject hits the auth collaborator once.
// Misses (anonymous subjects) are not cached; linking should take effect
// on the next message.
type CachingResolver struct {
	upstream Resolver
	store    *kvstore.Encrypted
	ttl      time.Duration
	logger   *slog.Logger
}

// NewCachingResolver wraps upstream with an encrypted session cache.
// A zero ttl defaults to five minutes.
func NewCachingResolver(upstream Resolver, store *kvstore.Encrypted, ttl time.Duration, logger *slog.Logger) *CachingResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingResolver{upstream: upstream, store: store, ttl: ttl, logger: logger}
}

func sessionKey(subjectID string) string {
	return "session:" + subjectID
}

// Lookup returns the cached session when present, consulting the
// upstream resolver otherwise.
func (r *CachingResolver) Lookup(ctx context.Context, subjectID string) (*Session, error) {
	var cached Session
	err := r.store.GetEncrypted(ctx, sessionKey(subjectID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, kvstore.ErrNotFound) {
		r.logger.Warn("auth: session cache read failed", "subject", subjectID, "err", err)
	}

	session, err := r.upstream.Lookup(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("auth lookup %q: %w", subjectID, err)
	}
	if session == nil {
		return nil, nil
	}

	if err := r.store.SetEncrypted(ctx, sessionKey(subjectID), session, r.ttl); err != nil {
		r.logger.Warn("auth: session cache write failed", "subject", subjectID, "err", err)
	}
	return session, nil
}

// Evict drops the cached session for subject, e.g. after an unlink.
func (r *CachingResolver) Evict(ctx context.Context, subjectID string) error {
	return r.store.Delete(ctx, sessionKey(subjectID))
}
