package goShield

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goShield/internal/events"
	"github.com/MrEthical07/goShield/internal/rate"
)

// RegisterAccount describes the registeraccount operation and its observable behavior.
//
// RegisterAccount may return an error when input validation, dependency calls, or security checks fail.
// RegisterAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RegisterAccount(ctx context.Context, identifier, passwd string) (*RegisterResult, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.checkRate(ctx, rate.BucketSignup, MetricSignupRateLimited); err != nil {
		return nil, err
	}

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrIdentifierInvalid
	}

	if e.breach != nil {
		if result := e.breach.Check(ctx, passwd); result.Compromised {
			e.metricInc(MetricPasswordCompromised)
			return nil, ErrPasswordCompromised
		}
	}

	hash, err := e.hasher.Hash(passwd)
	if err != nil {
		return nil, ErrPasswordPolicy
	}

	profile := Profile{
		UserID:       uuid.NewString(),
		Identifier:   identifier,
		PasswordHash: hash,
	}
	if err := e.accounts.CreateProfile(ctx, profile); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, ErrAccountExists
		}
		return nil, ErrProfileUnavailable
	}

	e.metricInc(MetricSignupSuccess)
	e.emitEvent(ctx, profile.UserID, events.TypeSignup, true,
		"account registered", e.locationFor(ctx, clientIPFromContext(ctx)), nil)

	return &RegisterResult{UserID: profile.UserID}, nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if e == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	profile, err := e.getProfile(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := e.hasher.Verify(currentPassword, profile.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		return ErrInvalidCredentials
	}

	if newPassword == currentPassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		return ErrPasswordReuse
	}

	if e.breach != nil {
		if result := e.breach.Check(ctx, newPassword); result.Compromised {
			e.metricInc(MetricPasswordCompromised)
			return ErrPasswordCompromised
		}
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return ErrPasswordPolicy
	}

	if err := e.accounts.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return ErrProfileUnavailable
	}

	location := e.locationFor(ctx, clientIPFromContext(ctx))
	e.metricInc(MetricPasswordChangeSuccess)
	e.emitEvent(ctx, userID, events.TypePasswordChange, true, "password changed", location, nil)

	if e.notifier != nil {
		event := SecurityEvent{
			UserID:      userID,
			Type:        events.TypePasswordChange,
			Description: "password changed",
			IPAddress:   clientIPFromContext(ctx),
			Location:    location,
			Success:     true,
			Timestamp:   e.now().UTC(),
		}
		e.notify.Go("password_changed", func(ctx context.Context) error {
			return e.notifier.NotifyPasswordChanged(ctx, userID, event)
		})
	}

	return nil
}

// CheckPassword describes the checkpassword operation and its observable behavior.
//
// CheckPassword may return an error when input validation, dependency calls, or security checks fail.
// CheckPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CheckPassword(ctx context.Context, passwd string) BreachResult {
	if e == nil || e.breach == nil {
		return BreachResult{}
	}
	result := e.breach.Check(ctx, passwd)
	if result.Compromised {
		e.metricInc(MetricPasswordCompromised)
	}
	return result
}

// AllowRequest describes the allowrequest operation and its observable behavior.
//
// AllowRequest may return an error when input validation, dependency calls, or security checks fail.
// AllowRequest does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AllowRequest(ctx context.Context, bucket string) (RateResult, error) {
	if e == nil || e.limiter == nil {
		return RateResult{}, ErrEngineNotReady
	}

	result, err := e.limiter.Check(ctx, bucket, e.clientKey(ctx))
	if err != nil {
		if errors.Is(err, rate.ErrUnknownBucket) {
			return RateResult{}, ErrUnknownBucket
		}
		policy, _ := e.limiter.Policy(bucket)
		e.logger.Warn("rate limiter unavailable, denying", "bucket", bucket, "error", err)
		return RateResult{}, &RateLimitError{Bucket: bucket, RetryAfter: policy.Window}
	}
	if !result.Allowed {
		e.metricInc(MetricRateLimitHit)
		return result, &RateLimitError{Bucket: bucket, RetryAfter: e.retryAfter(result)}
	}
	return result, nil
}

func (e *Engine) retryAfter(result RateResult) time.Duration {
	d := result.ResetAt.Sub(e.now())
	if d < 0 {
		d = 0
	}
	return d
}
