package goShield

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/goShield/internal/backup"
	"github.com/MrEthical07/goShield/internal/events"
)

// GenerateBackupCodes describes the generatebackupcodes operation and its observable behavior.
//
// GenerateBackupCodes may return an error when input validation, dependency calls, or security checks fail.
// GenerateBackupCodes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	codes, err := backup.Generate(e.config.BackupCodes.Count, e.config.BackupCodes.Length)
	if err != nil {
		return nil, err
	}

	encrypted := make([]EncryptedBlob, len(codes))
	for i, code := range codes {
		blob, err := e.codec.Encrypt([]byte(code))
		if err != nil {
			return nil, err
		}
		encrypted[i] = blob
	}

	// Regeneration replaces the whole set atomically. A concurrent
	// consumption loses: its version check fails and its code is gone
	// along with the rest of the old set.
	for attempt := 0; attempt < 2; attempt++ {
		profile, err := e.getProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !profile.TwoFactorEnabled {
			return nil, ErrTwoFactorNotConfigured
		}

		err = e.accounts.ReplaceBackupCodes(ctx, userID, encrypted, profile.CodesVersion)
		if errors.Is(err, ErrProfileConflict) {
			continue
		}
		if err != nil {
			return nil, ErrProfileUnavailable
		}

		e.metricInc(MetricBackupCodeRegenerated)
		e.emitEvent(ctx, userID, events.TypeBackupCodesGenerated, true,
			"backup codes regenerated", e.locationFor(ctx, clientIPFromContext(ctx)),
			map[string]string{"count": strconv.Itoa(len(codes))})
		return codes, nil
	}

	return nil, ErrProfileConflict
}
