package totp

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
)

func TestVerifyRFCVectorsSHA1(t *testing.T) {
	m := NewManager(Config{
		Issuer:    "goShield",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      0,
	})
	secret := []byte("12345678901234567890")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}

	for _, tc := range cases {
		ok, _, err := m.Verify(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA1 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestVerifyRFCVectorsSHA512(t *testing.T) {
	m := NewManager(Config{
		Issuer:    "goShield",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA512",
		Skew:      0,
	})
	secret := []byte("1234567890123456789012345678901234567890123456789012345678901234")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "90693936"},
		{1111111109, "25091201"},
		{1111111111, "99943326"},
		{1234567890, "93441116"},
		{2000000000, "38618901"},
		{20000000000, "47863826"},
	}

	for _, tc := range cases {
		ok, _, err := m.Verify(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA512 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestVerifyToleranceWindow(t *testing.T) {
	m := NewManager(Config{Issuer: "goShield", Digits: 6, Period: 30, Skew: 2})
	secret := []byte("12345678901234567890")
	now := time.Unix(1111111111, 0)
	counter := now.Unix() / 30

	for offset := int64(-2); offset <= 2; offset++ {
		code, err := HOTP(secret, counter+offset, 6, "SHA1")
		if err != nil {
			t.Fatalf("HOTP failed: %v", err)
		}
		ok, matched, err := m.Verify(secret, code, now)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if !ok {
			t.Fatalf("expected code at offset %d to be accepted", offset)
		}
		if matched != counter+offset {
			t.Fatalf("matched counter %d, want %d", matched, counter+offset)
		}
	}

	for _, offset := range []int64{-3, 3} {
		code, err := HOTP(secret, counter+offset, 6, "SHA1")
		if err != nil {
			t.Fatalf("HOTP failed: %v", err)
		}
		if ok, _, _ := m.Verify(secret, code, now); ok {
			t.Fatalf("expected code at offset %d to be rejected", offset)
		}
	}
}

func TestVerifyRejectsMalformedCodes(t *testing.T) {
	m := NewManager(Config{Issuer: "goShield", Digits: 6, Period: 30, Skew: 1})
	secret := []byte("12345678901234567890")
	now := time.Now()

	for _, code := range []string{"", "12345", "1234567", "12a456", "abcdef"} {
		ok, _, err := m.Verify(secret, code, now)
		if err != nil {
			t.Fatalf("Verify returned error for %q: %v", code, err)
		}
		if ok {
			t.Fatalf("expected %q to be rejected", code)
		}
	}
}

func TestGenerateSecretEntropy(t *testing.T) {
	m := NewManager(Config{Issuer: "goShield"})

	raw, encoded, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if len(raw) != 20 {
		t.Fatalf("expected 160-bit secret, got %d bytes", len(raw))
	}
	decoded, err := DecodeSecret(encoded)
	if err != nil {
		t.Fatalf("DecodeSecret failed: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Fatal("base32 encoding does not round trip")
	}

	_, other, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if other == encoded {
		t.Fatal("expected distinct secrets across calls")
	}
}

func TestProvisionURIParsesWithStandardTooling(t *testing.T) {
	m := NewManager(Config{Issuer: "goShield", Digits: 6, Period: 30, Algorithm: "SHA1"})
	_, encoded, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}

	uri := m.ProvisionURI(encoded, "alice@example.com")
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected scheme: %s", uri)
	}

	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		t.Fatalf("standard otpauth parser rejected URI: %v", err)
	}
	if key.Secret() != encoded {
		t.Fatalf("secret mismatch: got %s want %s", key.Secret(), encoded)
	}
	if key.Issuer() != "goShield" {
		t.Fatalf("issuer mismatch: got %s", key.Issuer())
	}
}
