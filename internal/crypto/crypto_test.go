package crypto

import (
	"bytes"
	"testing"
)

func testKey() string {
	// 32 bytes = 64 hex chars for AES-256
	return "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
}

func TestSealOpen(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	plaintext := []byte(`{"apiKey":"secret"}`)
	sealed, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(sealed, []byte("secret")) {
		t.Error("ciphertext leaks plaintext")
	}

	opened, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("expected %s, got %s", plaintext, opened)
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	sealed, err := c.Seal([]byte("data"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	if _, err := c.Open(sealed); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	if _, err := NewCipher("not-hex"); err == nil {
		t.Error("expected error for non-hex key")
	}
	if _, err := NewCipher("abcd"); err == nil {
		t.Error("expected error for short key")
	}
}

func TestOpenRejectsShortCiphertext(t *testing.T) {
	c, _ := NewCipher(testKey())
	if _, err := c.Open([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}
