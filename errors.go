package goShield

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEngineNotReady is an exported constant or variable used by the security engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials is an exported constant or variable used by the security engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is an exported constant or variable used by the security engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrRateLimited is an exported constant or variable used by the security engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrRateLimiterUnavailable is an exported constant or variable used by the security engine.
	ErrRateLimiterUnavailable = errors.New("rate limiter backend unavailable")
	// ErrTokenInvalid is an exported constant or variable used by the security engine.
	ErrTokenInvalid = errors.New("invalid verification token")
	// ErrTwoFactorRequired is an exported constant or variable used by the security engine.
	ErrTwoFactorRequired = errors.New("two-factor verification required")
	// ErrTwoFactorNotConfigured is an exported constant or variable used by the security engine.
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	// ErrTwoFactorAlreadyEnabled is an exported constant or variable used by the security engine.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrEnrollmentNotStarted is an exported constant or variable used by the security engine.
	ErrEnrollmentNotStarted = errors.New("two-factor enrollment not started")
	// ErrPasswordCompromised is an exported constant or variable used by the security engine.
	ErrPasswordCompromised = errors.New("password found in breach corpus")
	// ErrPasswordPolicy is an exported constant or variable used by the security engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is an exported constant or variable used by the security engine.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrIdentifierInvalid is an exported constant or variable used by the security engine.
	ErrIdentifierInvalid = errors.New("invalid account identifier")
	// ErrAccountExists is an exported constant or variable used by the security engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrProfileConflict is an exported constant or variable used by the security engine.
	ErrProfileConflict = errors.New("profile modified concurrently")
	// ErrProfileUnavailable is an exported constant or variable used by the security engine.
	ErrProfileUnavailable = errors.New("profile backend unavailable")
	// ErrUnknownBucket is an exported constant or variable used by the security engine.
	ErrUnknownBucket = errors.New("unknown rate limit bucket")
)

// RateLimitError defines a public type used by goShield APIs.
//
// RateLimitError instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitError struct {
	Bucket     string
	RetryAfter time.Duration
}

// Error describes the error operation and its observable behavior.
//
// Error may return an error when input validation, dependency calls, or security checks fail.
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on %q, retry after %s", e.Bucket, e.RetryAfter)
}

// Unwrap describes the unwrap operation and its observable behavior.
//
// Unwrap may return an error when input validation, dependency calls, or security checks fail.
// Unwrap does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
