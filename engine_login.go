package goShield

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/goShield/internal/backup"
	"github.com/MrEthical07/goShield/internal/events"
	"github.com/MrEthical07/goShield/internal/rate"
	"github.com/MrEthical07/goShield/internal/risk"
	"github.com/MrEthical07/goShield/internal/secretbox"
)

// dummyHash is a throwaway Argon2id hash that never matches any password.
// Verifying against it keeps the unknown-identifier path as expensive as a
// real password check.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$0qUujzLvdG34vnceLIUgIA==$gdKtc19icCnqiKo+awL/nSVKFrohIPotI8F5Dr7/SX0="

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, passwd string) (*LoginResult, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.checkRate(ctx, rate.BucketAuth, MetricLoginRateLimited); err != nil {
		return nil, err
	}

	profile, err := e.accounts.GetProfileByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a hash anyway so unknown identifiers cost the same
			// as wrong passwords.
			_, _ = e.hasher.Verify(passwd, dummyHash)
			e.metricInc(MetricLoginFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, ErrProfileUnavailable
	}

	ok, err := e.hasher.Verify(passwd, profile.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitEvent(ctx, profile.UserID, events.TypeFailedLogin, false,
			"invalid password", e.locationFor(ctx, clientIPFromContext(ctx)), nil)
		return nil, ErrInvalidCredentials
	}

	if profile.TwoFactorEnabled {
		return &LoginResult{UserID: profile.UserID, TwoFactorRequired: true}, nil
	}

	return e.finishLogin(ctx, profile, nil)
}

// VerifyLoginTOTP describes the verifylogintotp operation and its observable behavior.
//
// VerifyLoginTOTP may return an error when input validation, dependency calls, or security checks fail.
// VerifyLoginTOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyLoginTOTP(ctx context.Context, userID, code string) (*LoginResult, error) {
	if e == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.checkRate(ctx, rate.BucketTwoFactor, MetricTwoFactorRateLimited); err != nil {
		return nil, err
	}

	profile, err := e.getProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.TwoFactorEnabled || profile.TOTPSecret == nil {
		return nil, ErrTwoFactorNotConfigured
	}

	secret, err := e.codec.Decrypt(*profile.TOTPSecret)
	if err != nil {
		e.metricInc(MetricSecretDecryptFailure)
		e.logger.Error("stored totp secret failed to decrypt", "user_id", userID)
		return nil, ErrTokenInvalid
	}

	ok, counter, err := e.totp.Verify(secret, code, e.now())
	if err != nil || !ok {
		e.metricInc(MetricTwoFactorFailure)
		e.emitEvent(ctx, userID, events.TypeFailedLogin, false,
			"invalid totp code", e.locationFor(ctx, clientIPFromContext(ctx)), nil)
		return nil, ErrTokenInvalid
	}

	if e.config.TOTP.EnforceReplayProtection {
		if counter <= profile.TOTPLastUsed {
			e.metricInc(MetricTwoFactorFailure)
			e.emitEvent(ctx, userID, events.TypeFailedLogin, false,
				"replayed totp code", e.locationFor(ctx, clientIPFromContext(ctx)), nil)
			return nil, ErrTokenInvalid
		}
		if err := e.accounts.UpdateTOTPLastUsed(ctx, userID, counter); err != nil {
			return nil, ErrProfileUnavailable
		}
	}

	e.metricInc(MetricTwoFactorSuccess)
	if err := e.limiter.Reset(ctx, rate.BucketTwoFactor, e.clientKey(ctx)); err != nil {
		e.logger.Debug("twofactor limiter reset failed", "error", err)
	}
	return e.finishLogin(ctx, profile, nil)
}

// VerifyLoginBackupCode describes the verifyloginbackupcode operation and its observable behavior.
//
// VerifyLoginBackupCode may return an error when input validation, dependency calls, or security checks fail.
// VerifyLoginBackupCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyLoginBackupCode(ctx context.Context, userID, code string) (*LoginResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.checkRate(ctx, rate.BucketTwoFactor, MetricTwoFactorRateLimited); err != nil {
		return nil, err
	}

	// Consumption races regeneration and concurrent consumption through
	// the profile version. One retry absorbs a single interleaved write.
	for attempt := 0; attempt < 2; attempt++ {
		profile, err := e.getProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !profile.TwoFactorEnabled {
			return nil, ErrTwoFactorNotConfigured
		}

		idx, ok := e.matchBackupCode(profile.BackupCodes, code, userID)
		if !ok {
			e.metricInc(MetricBackupCodeFailed)
			e.emitEvent(ctx, userID, events.TypeFailedLogin, false,
				"invalid backup code", e.locationFor(ctx, clientIPFromContext(ctx)), nil)
			return nil, ErrTokenInvalid
		}

		remaining := make([]EncryptedBlob, 0, len(profile.BackupCodes)-1)
		remaining = append(remaining, profile.BackupCodes[:idx]...)
		remaining = append(remaining, profile.BackupCodes[idx+1:]...)

		err = e.accounts.ReplaceBackupCodes(ctx, userID, remaining, profile.CodesVersion)
		if errors.Is(err, ErrProfileConflict) {
			continue
		}
		if err != nil {
			return nil, ErrProfileUnavailable
		}

		e.metricInc(MetricBackupCodeUsed)
		e.emitEvent(ctx, userID, events.TypeBackupCodeUsed, true,
			"backup code consumed", e.locationFor(ctx, clientIPFromContext(ctx)),
			map[string]string{"codes_remaining": strconv.Itoa(len(remaining))})
		if err := e.limiter.Reset(ctx, rate.BucketTwoFactor, e.clientKey(ctx)); err != nil {
			e.logger.Debug("twofactor limiter reset failed", "error", err)
		}
		return e.finishLogin(ctx, profile, map[string]string{
			"factor":          "backup_code",
			"codes_remaining": strconv.Itoa(len(remaining)),
		})
	}

	return nil, ErrProfileConflict
}

// finishLogin runs the post-authentication stage shared by all factors:
// risk evaluation, the audit record, the suspicious-login alert, and the
// auth limiter reset.
func (e *Engine) finishLogin(ctx context.Context, profile Profile, metadata map[string]string) (*LoginResult, error) {
	ip := clientIPFromContext(ctx)
	location := e.locationFor(ctx, ip)

	assessment := e.risk.Evaluate(risk.Input{
		UserID:   profile.UserID,
		IP:       ip,
		Location: location,
		Device:   deviceIDFromContext(ctx),
	}, e.recentLoginSamples(ctx, profile.UserID))

	eventType := events.TypeLogin
	description := "successful login"
	if assessment.Suspicious {
		eventType = events.TypeSuspiciousLogin
		description = "suspicious login"
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["reason"] = assessment.Reason
		e.metricInc(MetricSuspiciousLogin)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitEvent(ctx, profile.UserID, eventType, true, description, location, metadata)

	if assessment.Suspicious && e.notifier != nil {
		event := SecurityEvent{
			UserID:      profile.UserID,
			Type:        eventType,
			Description: description,
			IPAddress:   ip,
			Location:    location,
			Success:     true,
			Timestamp:   e.now().UTC(),
			Metadata:    metadata,
		}
		userID := profile.UserID
		e.notify.Go("suspicious_login", func(ctx context.Context) error {
			return e.notifier.NotifySuspiciousLogin(ctx, userID, event)
		})
	}

	if err := e.limiter.Reset(ctx, rate.BucketAuth, e.clientKey(ctx)); err != nil {
		e.logger.Debug("auth limiter reset failed", "error", err)
	}

	return &LoginResult{
		UserID:     profile.UserID,
		Suspicious: assessment.Suspicious,
		RiskReason: assessment.Reason,
	}, nil
}

// matchBackupCode decrypts the stored set and looks for a constant-time
// match. A blob that fails to decrypt is skipped: it can never match, and
// one corrupt record must not lock out the remaining codes.
func (e *Engine) matchBackupCode(stored []EncryptedBlob, submitted, userID string) (int, bool) {
	plain := make([]string, len(stored))
	for i, blob := range stored {
		raw, err := e.codec.Decrypt(blob)
		if err != nil {
			if errors.Is(err, secretbox.ErrDecrypt) {
				e.metricInc(MetricSecretDecryptFailure)
				e.logger.Error("stored backup code failed to decrypt", "user_id", userID)
			}
			continue
		}
		plain[i] = string(raw)
	}
	return backup.Match(plain, submitted)
}

func (e *Engine) getProfile(ctx context.Context, userID string) (Profile, error) {
	profile, err := e.accounts.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Profile{}, ErrUserNotFound
		}
		return Profile{}, ErrProfileUnavailable
	}
	return profile, nil
}
