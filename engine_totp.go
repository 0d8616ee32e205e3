package goShield

import (
	"bytes"
	"context"
	"errors"
	"image/png"

	"github.com/pquerna/otp"

	"github.com/MrEthical07/goShield/internal/events"
	"github.com/MrEthical07/goShield/internal/rate"
)

// BeginTOTPEnrollment describes the begintotpenrollment operation and its observable behavior.
//
// BeginTOTPEnrollment may return an error when input validation, dependency calls, or security checks fail.
// BeginTOTPEnrollment does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) BeginTOTPEnrollment(ctx context.Context, userID string) (*TOTPEnrollment, error) {
	if e == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}

	profile, err := e.getProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	raw, encoded, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	blob, err := e.codec.Encrypt(raw)
	if err != nil {
		return nil, err
	}

	// The secret is stored immediately but stays dormant until the user
	// proves possession in ConfirmTOTPEnrollment.
	if err := e.accounts.SaveTOTPSecret(ctx, userID, blob); err != nil {
		return nil, ErrProfileUnavailable
	}

	return &TOTPEnrollment{
		Secret:       encoded,
		ProvisionURI: e.totp.ProvisionURI(encoded, profile.Identifier),
	}, nil
}

// ConfirmTOTPEnrollment describes the confirmtotpenrollment operation and its observable behavior.
//
// ConfirmTOTPEnrollment may return an error when input validation, dependency calls, or security checks fail.
// ConfirmTOTPEnrollment does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ConfirmTOTPEnrollment(ctx context.Context, userID, code string) error {
	if e == nil || e.totp == nil {
		return ErrEngineNotReady
	}

	if err := e.checkRate(ctx, rate.BucketTwoFactor, MetricTwoFactorRateLimited); err != nil {
		return err
	}

	profile, err := e.getProfile(ctx, userID)
	if err != nil {
		return err
	}
	if profile.TwoFactorEnabled {
		return ErrTwoFactorAlreadyEnabled
	}
	if profile.TOTPSecret == nil {
		return ErrEnrollmentNotStarted
	}

	secret, err := e.codec.Decrypt(*profile.TOTPSecret)
	if err != nil {
		e.metricInc(MetricSecretDecryptFailure)
		e.logger.Error("pending totp secret failed to decrypt", "user_id", userID)
		return ErrTokenInvalid
	}

	ok, counter, err := e.totp.Verify(secret, code, e.now())
	if err != nil || !ok {
		e.metricInc(MetricTwoFactorFailure)
		return ErrTokenInvalid
	}

	if e.config.TOTP.EnforceReplayProtection {
		if counter <= profile.TOTPLastUsed {
			e.metricInc(MetricTwoFactorFailure)
			return ErrTokenInvalid
		}
		if err := e.accounts.UpdateTOTPLastUsed(ctx, userID, counter); err != nil {
			return ErrProfileUnavailable
		}
	}

	if err := e.accounts.SetTwoFactorEnabled(ctx, userID, true); err != nil {
		return ErrProfileUnavailable
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.emitEvent(ctx, userID, events.TypeTwoFactorEnabled, true,
		"two-factor authentication enabled", e.locationFor(ctx, clientIPFromContext(ctx)), nil)
	return nil
}

// DisableTwoFactor describes the disabletwofactor operation and its observable behavior.
//
// DisableTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// DisableTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	profile, err := e.getProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !profile.TwoFactorEnabled && profile.TOTPSecret == nil {
		return ErrTwoFactorNotConfigured
	}

	// Clears the secret, all backup codes, and the enabled flag together.
	if err := e.accounts.ClearTwoFactor(ctx, userID); err != nil {
		return ErrProfileUnavailable
	}

	e.emitEvent(ctx, userID, events.TypeTwoFactorDisabled, true,
		"two-factor authentication disabled", e.locationFor(ctx, clientIPFromContext(ctx)), nil)
	return nil
}

// QRCode describes the qrcode operation and its observable behavior.
//
// QRCode may return an error when input validation, dependency calls, or security checks fail.
// QRCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) QRCode(provisionURI string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}

	key, err := otp.NewKeyFromURL(provisionURI)
	if err != nil {
		return nil, err
	}
	// NewKeyFromURL accepts any parseable URL, so reject anything that is
	// not a complete otpauth://totp URI before rendering it.
	if key.Type() != "totp" || key.Secret() == "" {
		return nil, errors.New("qr: not an otpauth totp uri")
	}

	img, err := key.Image(size, size)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
