// Package events defines the immutable security event record and its
// durable stores.
//
// Events are append-only: nothing updates or deletes a written event except
// the account-deletion cascade ([Store.DeleteByUser]). The log serves two
// readers with different needs — the user-facing audit display and the
// login risk evaluator, which compares a new login context against recent
// history.
package events

import "time"

// Type enumerates authentication-relevant event kinds.
type Type string

const (
	TypeLogin                Type = "login"
	TypeFailedLogin          Type = "failed_login"
	TypeSuspiciousLogin      Type = "suspicious_login"
	TypeSignup               Type = "signup"
	TypePasswordChange       Type = "password_change"
	TypeTwoFactorEnabled     Type = "two_factor_enabled"
	TypeTwoFactorDisabled    Type = "two_factor_disabled"
	TypeBackupCodeUsed       Type = "backup_code_used"
	TypeBackupCodesGenerated Type = "backup_codes_generated"
)

// Event is one immutable audit record. Metadata is an open-ended bag of
// scalar annotations; known keys are event-type specific (for example
// "reason" on suspicious logins).
type Event struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Type        Type              `json:"event_type"`
	Description string            `json:"description,omitempty"`
	IPAddress   string            `json:"ip_address,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	Location    string            `json:"location,omitempty"`
	DeviceType  string            `json:"device_type,omitempty"`
	Success     bool              `json:"success"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
