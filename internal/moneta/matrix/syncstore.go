package matrix

// syncstore.go implements mautrix.SyncStore on top of the key-value
// store. Persisting the next_batch token across restarts prevents the
// bot from replaying old room history and re-processing payments that
// were already handled in a previous run.

import (
	"context"
	"errors"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"

	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
)

var _ mautrix.SyncStore = (*kvSyncStore)(nil)

// kvSyncStore stores each value under "matrix:sync:<user>:<key>" with
// no TTL. Tokens are opaque and not sensitive, so they bypass the
// encryption layer.
type kvSyncStore struct {
	store kvstore.Store
}

func newKVSyncStore(store kvstore.Store) *kvSyncStore {
	return &kvSyncStore{store: store}
}

func syncKey(userID id.UserID, key string) string {
	return "matrix:sync:" + userID.String() + ":" + key
}

// SaveFilterID persists the Matrix event-filter ID for the given user.
func (s *kvSyncStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.store.Set(ctx, syncKey(userID, "filter_id"), []byte(filterID), 0)
}

// LoadFilterID retrieves the persisted event-filter ID. Returns ("",
// nil) when no filter has been saved yet.
func (s *kvSyncStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.load(ctx, syncKey(userID, "filter_id"))
}

// SaveNextBatch persists the opaque /sync next_batch token so the bot
// resumes from the correct position after a restart.
func (s *kvSyncStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	return s.store.Set(ctx, syncKey(userID, "next_batch"), []byte(nextBatchToken), 0)
}

// LoadNextBatch retrieves the last saved next_batch token. Returns
// ("", nil) on first run.
func (s *kvSyncStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.load(ctx, syncKey(userID, "next_batch"))
}

func (s *kvSyncStore) load(ctx context.Context, key string) (string, error) {
	value, err := s.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(value), nil
}
