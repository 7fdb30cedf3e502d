package crypto_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/moneta-bot/moneta/common/crypto"
)

func newCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := crypto.New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSealOpen_Roundtrip(t *testing.T) {
	c := newCipher(t)
	plaintext := []byte(`{"command":"send","amount":"10.00"}`)

	blob, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if bytes.Equal(blob, plaintext) {
		t.Fatal("sealed blob should not equal plaintext")
	}

	recovered, err := c.Open(blob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !bytes.Equal(recovered, plaintext) {
		t.Errorf("recovered %q, want %q", recovered, plaintext)
	}
}

func TestSeal_NonDeterministic(t *testing.T) {
	c := newCipher(t)
	plaintext := []byte("same plaintext")

	b1, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("first Seal: %v", err)
	}
	b2, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("second Seal: %v", err)
	}

	// Random nonce means blobs should differ.
	if bytes.Equal(b1, b2) {
		t.Error("two seals of same plaintext produced identical blobs (nonce not random)")
	}
}

func TestNew_InvalidKeySize(t *testing.T) {
	cases := []struct {
		name string
		key  []byte
	}{
		{"empty", []byte{}},
		{"16-byte", make([]byte, 16)},
		{"31-byte", make([]byte, 31)},
		{"33-byte", make([]byte, 33)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := crypto.New(tc.key); err == nil {
				t.Fatal("expected error for invalid key size, got nil")
			}
		})
	}
}

func TestOpen_Tampered(t *testing.T) {
	c := newCipher(t)

	blob, err := c.Seal([]byte("tamper test"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	// Flip a byte in the ciphertext body (after nonce).
	blob[len(blob)-1] ^= 0xFF

	if _, err := c.Open(blob); err == nil {
		t.Fatal("expected authentication failure for tampered blob, got nil")
	}
}

func TestOpen_WrongKey(t *testing.T) {
	c1 := newCipher(t)

	other := make([]byte, crypto.KeySize)
	for i := range other {
		other[i] = byte(i + 100)
	}
	c2, err := crypto.New(other)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	blob, err := c1.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := c2.Open(blob); err == nil {
		t.Fatal("expected error when opening with wrong key, got nil")
	}
}

func TestOpen_TooShort(t *testing.T) {
	c := newCipher(t)
	if _, err := c.Open([]byte("short")); err == nil {
		t.Fatal("expected error for too-short blob, got nil")
	}
}

func TestParseMasterKey(t *testing.T) {
	raw := make([]byte, crypto.KeySize)
	for i := range raw {
		raw[i] = byte(i)
	}
	encoded := hex.EncodeToString(raw)

	key, err := crypto.ParseMasterKey("  " + encoded + "\n")
	if err != nil {
		t.Fatalf("ParseMasterKey: %v", err)
	}
	if !bytes.Equal(key, raw) {
		t.Error("parsed key does not match original bytes")
	}

	for _, bad := range []string{"", "zzzz", "abcd"} {
		if _, err := crypto.ParseMasterKey(bad); err == nil {
			t.Errorf("ParseMasterKey(%q): expected error, got nil", bad)
		}
	}
}
