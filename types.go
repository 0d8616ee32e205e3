package goShield

import (
	"context"
	"time"

	"github.com/MrEthical07/goShield/internal/audit"
	"github.com/MrEthical07/goShield/internal/breach"
	"github.com/MrEthical07/goShield/internal/events"
	"github.com/MrEthical07/goShield/internal/geo"
	"github.com/MrEthical07/goShield/internal/rate"
	"github.com/MrEthical07/goShield/internal/secretbox"
)

// EncryptedBlob defines a public type used by goShield APIs.
//
// EncryptedBlob instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EncryptedBlob = secretbox.Blob

// SecurityEvent defines a public type used by goShield APIs.
//
// SecurityEvent instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityEvent = events.Event

// EventType defines a public type used by goShield APIs.
//
// EventType instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EventType = events.Type

const (
	// EventLogin is an exported constant or variable used by the security engine.
	EventLogin = events.TypeLogin
	// EventFailedLogin is an exported constant or variable used by the security engine.
	EventFailedLogin = events.TypeFailedLogin
	// EventSuspiciousLogin is an exported constant or variable used by the security engine.
	EventSuspiciousLogin = events.TypeSuspiciousLogin
	// EventSignup is an exported constant or variable used by the security engine.
	EventSignup = events.TypeSignup
	// EventPasswordChange is an exported constant or variable used by the security engine.
	EventPasswordChange = events.TypePasswordChange
	// EventTwoFactorEnabled is an exported constant or variable used by the security engine.
	EventTwoFactorEnabled = events.TypeTwoFactorEnabled
	// EventTwoFactorDisabled is an exported constant or variable used by the security engine.
	EventTwoFactorDisabled = events.TypeTwoFactorDisabled
	// EventBackupCodeUsed is an exported constant or variable used by the security engine.
	EventBackupCodeUsed = events.TypeBackupCodeUsed
	// EventBackupCodesGenerated is an exported constant or variable used by the security engine.
	EventBackupCodesGenerated = events.TypeBackupCodesGenerated
)

// EventStore defines a public type used by goShield APIs.
//
// EventStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EventStore = events.Store

// AuditSink defines a public type used by goShield APIs.
//
// AuditSink instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditSink = audit.Sink

// BreachResult defines a public type used by goShield APIs.
//
// BreachResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BreachResult = breach.Result

// DenylistCount is an exported constant or variable used by the security engine.
const DenylistCount = breach.DenylistCount

// RateResult defines a public type used by goShield APIs.
//
// RateResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateResult = rate.Result

// Well-known rate limit bucket names.
const (
	// BucketAuth is an exported constant or variable used by the security engine.
	BucketAuth = rate.BucketAuth
	// BucketTwoFactor is an exported constant or variable used by the security engine.
	BucketTwoFactor = rate.BucketTwoFactor
	// BucketSignup is an exported constant or variable used by the security engine.
	BucketSignup = rate.BucketSignup
	// BucketPasswordReset is an exported constant or variable used by the security engine.
	BucketPasswordReset = rate.BucketPasswordReset
	// BucketAPI is an exported constant or variable used by the security engine.
	BucketAPI = rate.BucketAPI
)

// NewMemoryEventStore describes the newmemoryeventstore operation and its observable behavior.
//
// NewMemoryEventStore may return an error when input validation, dependency calls, or security checks fail.
// NewMemoryEventStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemoryEventStore() EventStore {
	return events.NewMemoryStore()
}

// OpenSQLiteEventStore describes the opensqliteeventstore operation and its observable behavior.
//
// OpenSQLiteEventStore may return an error when input validation, dependency calls, or security checks fail.
// OpenSQLiteEventStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func OpenSQLiteEventStore(path string) (EventStore, error) {
	return events.OpenSQLite(path)
}

// Profile defines a public type used by goShield APIs.
//
// Profile instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Profile struct {
	UserID           string
	Identifier       string
	PasswordHash     string
	TwoFactorEnabled bool
	TOTPSecret       *EncryptedBlob
	// TOTPLastUsed is the time-step counter of the last accepted code.
	// Codes at or below it are replays and must be rejected.
	TOTPLastUsed int64
	BackupCodes  []EncryptedBlob
	// CodesVersion advances on every backup code replacement and guards
	// concurrent consume/regenerate races.
	CodesVersion uint64
}

// AccountStore is the host-provided persistence boundary for security
// profiles. Implementations return ErrUserNotFound for unknown users,
// ErrAccountExists on identifier collisions, and ErrProfileConflict when
// an optimistic version check fails. Any other error is treated as
// backend unavailability.
type AccountStore interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	GetProfileByIdentifier(ctx context.Context, identifier string) (Profile, error)
	CreateProfile(ctx context.Context, profile Profile) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	SaveTOTPSecret(ctx context.Context, userID string, secret EncryptedBlob) error
	// UpdateTOTPLastUsed persists the counter of the last accepted code.
	UpdateTOTPLastUsed(ctx context.Context, userID string, counter int64) error
	SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error
	// ClearTwoFactor removes the stored secret and all backup codes and
	// marks two-factor disabled, in one step.
	ClearTwoFactor(ctx context.Context, userID string) error
	// ReplaceBackupCodes swaps the full code set if the stored
	// CodesVersion still equals expectedVersion.
	ReplaceBackupCodes(ctx context.Context, userID string, codes []EncryptedBlob, expectedVersion uint64) error
}

// GeoResolver defines a public type used by goShield APIs.
//
// GeoResolver instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (string, error)
}

// StaticGeoResolver defines a public type used by goShield APIs.
//
// StaticGeoResolver instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StaticGeoResolver = geo.StaticResolver

// NewHTTPGeoResolver describes the newhttpgeoresolver operation and its observable behavior.
//
// NewHTTPGeoResolver may return an error when input validation, dependency calls, or security checks fail.
// NewHTTPGeoResolver does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewHTTPGeoResolver(baseURL string, timeout time.Duration) GeoResolver {
	return geo.NewHTTPResolver(baseURL, timeout)
}

// Notifier receives fire-and-forget user alerts. Implementations must be
// safe for concurrent use; delivery failures are logged, never surfaced.
type Notifier interface {
	NotifySuspiciousLogin(ctx context.Context, userID string, event SecurityEvent) error
	NotifyPasswordChanged(ctx context.Context, userID string, event SecurityEvent) error
}

// LoginResult defines a public type used by goShield APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginResult struct {
	UserID string
	// TwoFactorRequired reports that the password stage passed but the
	// login is pending a second factor.
	TwoFactorRequired bool
	Suspicious        bool
	RiskReason        string
}

// RegisterResult defines a public type used by goShield APIs.
//
// RegisterResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RegisterResult struct {
	UserID string
}

// TOTPEnrollment defines a public type used by goShield APIs.
//
// TOTPEnrollment instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPEnrollment struct {
	// Secret is the base32 secret to show the user exactly once.
	Secret string
	// ProvisionURI is the otpauth:// URI for authenticator apps.
	ProvisionURI string
}
