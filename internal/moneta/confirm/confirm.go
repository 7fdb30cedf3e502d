// Package confirm implements the payment confirmation flow: one pending
// money-moving command per subject, held encrypted with a short TTL
// until the subject replies yes or no.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
)

// DefaultTTL is how long a pending confirmation stays answerable.
const DefaultTTL = 300 * time.Second

// ErrNoPending is returned when the subject has no live pending
// confirmation, whether never stored or already expired.
var ErrNoPending = errors.New("no pending confirmation")

// Pending is a stored money-moving command awaiting a yes/no reply.
type Pending struct {
	Command     *commands.Command `json:"command"`
	SubjectID   string            `json:"subject_id"`
	SecondaryID string            `json:"secondary_id,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// Expired reports whether the confirmation window has closed.
func (p *Pending) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Service stores at most one pending confirmation per subject,
// encrypted at rest. Storing a new one replaces any previous one; a
// subject can only ever be asked about their latest payment.
type Service struct {
	store  *kvstore.Encrypted
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New builds a Service. A zero ttl uses DefaultTTL; logger may be nil.
func New(store *kvstore.Encrypted, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, ttl: ttl, logger: logger, now: time.Now}
}

func confirmationKey(subjectID string) string {
	return "confirmation:" + subjectID
}

// Store records cmd as the subject's pending confirmation, replacing
// any existing one.
func (s *Service) Store(ctx context.Context, subjectID, secondaryID, sessionID string, cmd *commands.Command) (*Pending, error) {
	now := s.now()
	pending := &Pending{
		Command:     cmd,
		SubjectID:   subjectID,
		SecondaryID: secondaryID,
		SessionID:   sessionID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.store.SetEncrypted(ctx, confirmationKey(subjectID), pending, s.ttl); err != nil {
		return nil, fmt.Errorf("store confirmation for %q: %w", subjectID, err)
	}
	s.logger.Debug("confirmation stored",
		"subject", subjectID, "command", cmd.Type, "expires_at", pending.ExpiresAt)
	return pending, nil
}

// Get returns the subject's live pending confirmation. An expired entry
// is deleted on read and reported as ErrNoPending.
func (s *Service) Get(ctx context.Context, subjectID string) (*Pending, error) {
	var pending Pending
	err := s.store.GetEncrypted(ctx, confirmationKey(subjectID), &pending)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("load confirmation for %q: %w", subjectID, err)
	}
	if pending.Expired(s.now()) {
		if err := s.store.Delete(ctx, confirmationKey(subjectID)); err != nil {
			s.logger.Warn("confirmation expiry cleanup failed", "subject", subjectID, "err", err)
		}
		return nil, ErrNoPending
	}
	return &pending, nil
}

// Clear removes the subject's pending confirmation. Clearing when
// nothing is pending is not an error.
func (s *Service) Clear(ctx context.Context, subjectID string) error {
	if err := s.store.Delete(ctx, confirmationKey(subjectID)); err != nil {
		return fmt.Errorf("clear confirmation for %q: %w", subjectID, err)
	}
	return nil
}
