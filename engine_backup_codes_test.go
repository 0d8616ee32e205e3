package goShield

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateBackupCodesRequiresTwoFactor(t *testing.T) {
	h, done := newTestEngine(t, securityTestConfig())
	defer done()
	h.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")

	_, err := h.engine.GenerateBackupCodes(context.Background(), "u1")
	if !errors.Is(err, ErrTwoFactorNotConfigured) {
		t.Fatalf("expected ErrTwoFactorNotConfigured, got %v", err)
	}
}

func TestGenerateBackupCodesShapeAndStorage(t *testing.T) {
	cfg := securityTestConfig()
	cfg.BackupCodes.Count = 6
	cfg.BackupCodes.Length = 10

	h, done := newTestEngine(t, cfg)
	defer done()
	h.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	enableTwoFactor(t, h, "u1")

	codes, err := h.engine.GenerateBackupCodes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GenerateBackupCodes failed: %v", err)
	}
	if len(codes) != 6 {
		t.Fatalf("expected 6 codes, got %d", len(codes))
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		if len(code) != 10 {
			t.Fatalf("expected length 10, got %q", code)
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("expected uppercase code, got %q", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
	}

	profile, _ := h.store.GetProfile(context.Background(), "u1")
	if len(profile.BackupCodes) != 6 {
		t.Fatalf("expected 6 stored blobs, got %d", len(profile.BackupCodes))
	}
	for i, blob := range profile.BackupCodes {
		if strings.Contains(string(blob.Ciphertext), codes[i]) {
			t.Fatal("stored codes must not be plaintext")
		}
	}
	h.waitEvent(t, EventBackupCodesGenerated)
}

func TestBackupCodeSingleUse(t *testing.T) {
	h, done := newTestEngine(t, securityTestConfig())
	defer done()
	h.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	enableTwoFactor(t, h, "u1")

	codes, err := h.engine.GenerateBackupCodes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GenerateBackupCodes failed: %v", err)
	}

	ctx := WithClientIP(context.Background(), "198.51.100.1")
	result, err := h.engine.VerifyLoginBackupCode(ctx, "u1", codes[0])
	if err != nil {
		t.Fatalf("VerifyLoginBackupCode failed: %v", err)
	}
	if result.UserID != "u1" {
		t.Fatalf("expected u1, got %s", result.UserID)
	}

	profile, _ := h.store.GetProfile(context.Background(), "u1")
	if len(profile.BackupCodes) != len(codes)-1 {
		t.Fatalf("expected %d codes left, got %d", len(codes)-1, len(profile.BackupCodes))
	}

	// The same code again is spent.
	if _, err := h.engine.VerifyLoginBackupCode(ctx, "u1", codes[0]); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on reuse, got %v", err)
	}

	used := h.waitEvent(t, EventBackupCodeUsed)
	if used.Metadata["codes_remaining"] == "" {
		t.Fatal("expected codes_remaining metadata")
	}
}

func TestBackupCodeCanonicalization(t *testing.T) {
	h, done := newTestEngine(t, securityTestConfig())
	defer done()
	h.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	enableTwoFactor(t, h, "u1")

	codes, err := h.engine.GenerateBackupCodes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GenerateBackupCodes failed: %v", err)
	}

	// Lowercase with separators, the way users retype printed codes.
	messy := strings.ToLower(codes[0][:4] + "-" + codes[0][4:])
	ctx := WithClientIP(context.Background(), "198.51.100.1")
	if _, err := h.engine.VerifyLoginBackupCode(ctx, "u1", messy); err != nil {
		t.Fatalf("expected canonicalized match, got %v", err)
	}
}

func TestBackupCodePrefixRejected(t *testing.T) {
	h, done := newTestEngine(t, securityTestConfig())
	defer done()
	h.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	enableTwoFactor(t, h, "u1")

	codes, err := h.engine.GenerateBackupCodes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GenerateBackupCodes failed: %v", err)
	}

	ctx := WithClientIP(context.Background(), "198.51.100.1")
	if _, err := h.engine.VerifyLoginBackupCode(ctx, "u1", codes[0][:len(codes[0])-1]); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected prefix to be rejected, got %v", err)
	}
}

func TestBackupCodeExhaustion(t *testing.T) {
	cfg := securityTestConfig()
	cfg.BackupCodes.Count = 2
	// Generous budget so the limiter stays out of the way.
	cfg.RateLimit.Buckets = map[string]BucketPolicy{
		BucketTwoFactor: {Window: time.Hour, Max: 100},
	}

	h, done := newTestEngine(t, cfg)
	defer done()
	h.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	enableTwoFactor(t, h, "u1")

	codes, err := h.engine.GenerateBackupCodes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GenerateBackupCodes failed: %v", err)
	}

	ctx := WithClientIP(context.Background(), "198.51.100.1")
	for _, code := range codes {
		if _, err := h.engine.VerifyLoginBackupCode(ctx, "u1", code); err != nil {
			t.Fatalf("consume %q failed: %v", code, err)
		}
	}

	profile, _ := h.store.GetProfile(context.Background(), "u1")
	if len(profile.BackupCodes) != 0 {
		t.Fatalf("expected empty set, got %d", len(profile.BackupCodes))
	}

	if _, err := h.engine.VerifyLoginBackupCode(ctx, "u1", codes[0]); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after exhaustion, got %v", err)
	}
}

func TestBackupCodeConsumeRetriesOnConflict(t *testing.T) {
	h, done := newTestEngine(t, securityTestConfig())
	defer done()
	h.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	enableTwoFactor(t, h, "u1")

	codes, err := h.engine.GenerateBackupCodes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GenerateBackupCodes failed: %v", err)
	}

	// First replace attempt loses a version race; the retry must succeed.
	h.store.mu.Lock()
	h.store.conflictOnce = true
	h.store.mu.Unlock()

	ctx := WithClientIP(context.Background(), "198.51.100.1")
	if _, err := h.engine.VerifyLoginBackupCode(ctx, "u1", codes[0]); err != nil {
		t.Fatalf("expected retry to absorb one conflict, got %v", err)
	}
}

func TestRegenerateInvalidatesOldCodes(t *testing.T) {
	h, done := newTestEngine(t, securityTestConfig())
	defer done()
	h.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	enableTwoFactor(t, h, "u1")

	oldCodes, err := h.engine.GenerateBackupCodes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}
	newCodes, err := h.engine.GenerateBackupCodes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second generation failed: %v", err)
	}

	ctx := WithClientIP(context.Background(), "198.51.100.1")
	if _, err := h.engine.VerifyLoginBackupCode(ctx, "u1", oldCodes[0]); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected old code rejected, got %v", err)
	}
	if _, err := h.engine.VerifyLoginBackupCode(ctx, "u1", newCodes[0]); err != nil {
		t.Fatalf("expected new code accepted, got %v", err)
	}
}
