package secretbox

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	codec, err := New("service-secret-for-tests")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, plaintext := range [][]byte{
		[]byte("x"),
		[]byte("JBSWY3DPEHPK3PXP"),
		bytes.Repeat([]byte{0x00}, 64),
		{},
	} {
		blob, err := codec.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		got, err := codec.Decrypt(blob)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
		}
	}
}

func TestFreshNoncePerCall(t *testing.T) {
	codec, err := New("service-secret-for-tests")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	a, err := codec.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := codec.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(a.Nonce, b.Nonce) {
		t.Fatal("expected distinct nonces for repeated encryption")
	}
	if bytes.Equal(a.Ciphertext, b.Ciphertext) {
		t.Fatal("expected distinct ciphertexts for repeated encryption")
	}
}

func TestWrongKeyFailsLoudly(t *testing.T) {
	codec, err := New("service-secret-one")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	other, err := New("service-secret-two")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	blob, err := codec.Encrypt([]byte("totp seed bytes"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := other.Decrypt(blob); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt with wrong key, got %v", err)
	}
}

func TestTamperedCiphertextFails(t *testing.T) {
	codec, err := New("service-secret-for-tests")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	blob, err := codec.Encrypt([]byte("backup code"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	blob.Ciphertext[0] ^= 0xff

	if _, err := codec.Decrypt(blob); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt for tampered blob, got %v", err)
	}
}

func TestTruncatedBlobFails(t *testing.T) {
	codec, err := New("service-secret-for-tests")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	blob, err := codec.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	blob.Nonce = blob.Nonce[:4]

	if _, err := codec.Decrypt(blob); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt for truncated nonce, got %v", err)
	}
}

func TestEmptySecretRejected(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
