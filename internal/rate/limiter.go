package rate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Well-known bucket names. Hosts may register additional buckets through
// the limiter configuration.
const (
	BucketAuth          = "auth"
	BucketTwoFactor     = "twofactor"
	BucketSignup        = "signup"
	BucketPasswordReset = "password_reset"
	BucketAPI           = "api"
)

// ErrUnknownBucket reports a Check against a bucket with no policy.
var ErrUnknownBucket = errors.New("rate: unknown bucket")

// Policy is the budget for one named bucket.
type Policy struct {
	Window time.Duration
	Max    int
	// FailOpen admits traffic when the store is unavailable. Keep it false
	// for security-sensitive buckets: an attacker benefits from an open
	// limiter far more than a legitimate user suffers from a closed one.
	FailOpen bool
}

// DefaultPolicies returns the stock bucket set.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		BucketAuth:          {Window: 15 * time.Minute, Max: 5},
		BucketTwoFactor:     {Window: 15 * time.Minute, Max: 5},
		BucketSignup:        {Window: time.Hour, Max: 3},
		BucketPasswordReset: {Window: time.Hour, Max: 3},
		BucketAPI:           {Window: time.Minute, Max: 60, FailOpen: true},
	}
}

// Result is the caller-facing outcome of one Check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter applies per-bucket policies over a shared [Store].
type Limiter struct {
	store    Store
	policies map[string]Policy
	logger   *slog.Logger
}

// NewLimiter builds a limiter. A nil policies map falls back to
// [DefaultPolicies].
func NewLimiter(store Store, policies map[string]Policy, logger *slog.Logger) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{store: store, policies: policies, logger: logger}
}

// Check records one hit for (bucket, key) and reports whether it fit the
// budget. Store failure degrades per the bucket policy: fail-open buckets
// admit the request, everything else reports ErrStoreUnavailable and the
// caller must deny.
func (l *Limiter) Check(ctx context.Context, bucket, key string) (Result, error) {
	policy, ok := l.policies[bucket]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}

	hit, err := l.store.Incr(ctx, bucket+":"+key, int64(policy.Max), policy.Window)
	if err != nil {
		if policy.FailOpen {
			l.logger.Warn("rate limiter store failure, failing open",
				"bucket", bucket, "error", err)
			return Result{Allowed: true, Remaining: policy.Max}, nil
		}
		return Result{}, err
	}

	remaining := policy.Max - int(hit.Count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: hit.Allowed, Remaining: remaining, ResetAt: hit.ResetAt}, nil
}

// Reset clears the counter for (bucket, key) ahead of its window, for use
// after a confirmed legitimate action.
func (l *Limiter) Reset(ctx context.Context, bucket, key string) error {
	if _, ok := l.policies[bucket]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}
	return l.store.Reset(ctx, bucket+":"+key)
}

// Policy returns the configured policy for a bucket.
func (l *Limiter) Policy(bucket string) (Policy, bool) {
	policy, ok := l.policies[bucket]
	return policy, ok
}
