package goShield

import "context"

// SecurityEvents describes the securityevents operation and its observable behavior.
//
// SecurityEvents may return an error when input validation, dependency calls, or security checks fail.
// SecurityEvents does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityEvents(ctx context.Context, userID string, limit int) ([]SecurityEvent, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.events == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return e.events.ListByUser(ctx, userID, limit)
}

// PurgeUserEvents describes the purgeuserevents operation and its observable behavior.
//
// PurgeUserEvents may return an error when input validation, dependency calls, or security checks fail.
// PurgeUserEvents does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) PurgeUserEvents(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.events == nil {
		return nil
	}
	return e.events.DeleteByUser(ctx, userID)
}
