package goShield

import (
	"context"
	"time"

	"github.com/MrEthical07/goShield/internal/events"
)

// SecurityReport defines a public type used by goShield APIs.
//
// SecurityReport instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityReport struct {
	UserID               string
	TwoFactorEnabled     bool
	BackupCodesRemaining int
	LastLogin            time.Time
	LastLoginIP          string
	LastLoginLocation    string
	// SuspiciousLogins and FailedLogins count events inside the report
	// window, not all time.
	SuspiciousLogins int
	FailedLogins     int
	EventsByType     map[EventType]int
}

// reportWindow caps how many events one report inspects.
const reportWindow = 200

// BuildSecurityReport describes the buildsecurityreport operation and its observable behavior.
//
// BuildSecurityReport may return an error when input validation, dependency calls, or security checks fail.
// BuildSecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) BuildSecurityReport(ctx context.Context, userID string) (*SecurityReport, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	profile, err := e.getProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &SecurityReport{
		UserID:               profile.UserID,
		TwoFactorEnabled:     profile.TwoFactorEnabled,
		BackupCodesRemaining: len(profile.BackupCodes),
		EventsByType:         make(map[EventType]int),
	}

	if e.events == nil {
		return report, nil
	}

	evs, err := e.events.ListByUser(ctx, userID, reportWindow)
	if err != nil {
		return nil, err
	}

	for _, ev := range evs {
		report.EventsByType[ev.Type]++
		switch ev.Type {
		case events.TypeSuspiciousLogin:
			report.SuspiciousLogins++
		case events.TypeFailedLogin:
			report.FailedLogins++
		}
		if ev.Success && (ev.Type == events.TypeLogin || ev.Type == events.TypeSuspiciousLogin) {
			if report.LastLogin.IsZero() {
				// Events arrive most recent first.
				report.LastLogin = ev.Timestamp
				report.LastLoginIP = ev.IPAddress
				report.LastLoginLocation = ev.Location
			}
		}
	}

	return report, nil
}
