package kvstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/moneta-bot/moneta/common/crypto"
	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
)

type record struct {
	Subject string `json:"subject"`
	Amount  string `json:"amount"`
}

func newEncrypted(t *testing.T) (*kvstore.Encrypted, kvstore.Store) {
	t.Helper()
	s, err := kvstore.OpenSQLite(filepath.Join(t.TempDir(), "enc-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i * 3)
	}
	cipher, err := crypto.New(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	return kvstore.NewEncrypted(s, cipher), s
}

func TestEncrypted_Roundtrip(t *testing.T) {
	enc, raw := newEncrypted(t)
	ctx := context.Background()

	in := record{Subject: "@alice:example.com", Amount: "12.50"}
	if err := enc.SetEncrypted(ctx, "confirmation:alice", in, time.Hour); err != nil {
		t.Fatalf("SetEncrypted: %v", err)
	}

	// The backend must hold ciphertext, not the JSON plaintext.
	blob, err := raw.Get(ctx, "confirmation:alice")
	if err != nil {
		t.Fatalf("raw Get: %v", err)
	}
	if string(blob) == `{"subject":"@alice:example.com","amount":"12.50"}` {
		t.Fatal("value stored in plaintext")
	}

	var out record
	if err := enc.GetEncrypted(ctx, "confirmation:alice", &out); err != nil {
		t.Fatalf("GetEncrypted: %v", err)
	}
	if out != in {
		t.Errorf("GetEncrypted = %+v, want %+v", out, in)
	}
}

func TestEncrypted_Missing(t *testing.T) {
	enc, _ := newEncrypted(t)

	var out record
	err := enc.GetEncrypted(context.Background(), "confirmation:nobody", &out)
	if !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEncrypted_SelfHealOnCorruption(t *testing.T) {
	enc, raw := newEncrypted(t)
	ctx := context.Background()

	if err := enc.SetEncrypted(ctx, "k", record{Subject: "s"}, time.Hour); err != nil {
		t.Fatalf("SetEncrypted: %v", err)
	}

	// Corrupt the ciphertext out of band.
	blob, err := raw.Get(ctx, "k")
	if err != nil {
		t.Fatalf("raw Get: %v", err)
	}
	blob[len(blob)-1] ^= 0xFF
	if err := raw.Set(ctx, "k", blob, time.Hour); err != nil {
		t.Fatalf("raw Set: %v", err)
	}

	var out record
	if err := enc.GetEncrypted(ctx, "k", &out); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("GetEncrypted on corrupted record: err = %v, want ErrNotFound", err)
	}

	// The poisoned key must be gone, not left to fail on every read.
	ok, err := enc.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("corrupted key still exists after self-heal")
	}
}

func TestEncrypted_SelfHealOnGarbage(t *testing.T) {
	enc, raw := newEncrypted(t)
	ctx := context.Background()

	// A stale record written under an old key format: too short to even
	// carry a nonce.
	if err := raw.Set(ctx, "legacy", []byte("junk"), 0); err != nil {
		t.Fatalf("raw Set: %v", err)
	}

	var out record
	if err := enc.GetEncrypted(ctx, "legacy", &out); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	ok, _ := raw.Exists(ctx, "legacy")
	if ok {
		t.Error("garbage record not deleted")
	}
}
