package connections

import (
	"strings"
	"testing"
)

func TestEncryptorRoundTrip(t *testing.T) {
	enc, err := newAesGcmEncryptor([]byte(strings.Repeat("k", 32)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sealed, err := enc.Encrypt("secret-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sealed == "" || strings.Contains(sealed, "secret-token") {
		t.Fatalf("expected opaque ciphertext, got %q", sealed)
	}
	again, _ := enc.Encrypt("secret-token")
	if again == sealed {
		t.Fatalf("expected a fresh nonce per encryption")
	}
	plain, err := enc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plain != "secret-token" {
		t.Fatalf("unexpected plaintext: %q", plain)
	}
}

func TestEncryptorEmptyValues(t *testing.T) {
	enc, _ := newAesGcmEncryptor([]byte(strings.Repeat("k", 32)))
	if out, err := enc.Encrypt(""); err != nil || out != "" {
		t.Fatalf("expected empty ciphertext, got %q %v", out, err)
	}
	if out, err := enc.Decrypt(""); err != nil || out != "" {
		t.Fatalf("expected empty plaintext, got %q %v", out, err)
	}
}

func TestEncryptorRejectsBadKey(t *testing.T) {
	if _, err := newAesGcmEncryptor([]byte("short")); err == nil {
		t.Fatalf("expected key length error")
	}
}

func TestEncryptorRejectsTamperedData(t *testing.T) {
	enc, _ := newAesGcmEncryptor([]byte(strings.Repeat("k", 32)))
	if _, err := enc.Decrypt("AAAA"); err == nil {
		t.Fatalf("expected error for short ciphertext")
	}
	other, _ := newAesGcmEncryptor([]byte(strings.Repeat("x", 32)))
	sealed, _ := other.Encrypt("secret")
	if _, err := enc.Decrypt(sealed); err == nil {
		t.Fatalf("expected authentication failure with the wrong key")
	}
}
