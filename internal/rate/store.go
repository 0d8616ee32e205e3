package rate

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps backend failures (for example a Redis outage).
var ErrStoreUnavailable = errors.New("rate: store unavailable")

// Hit is the outcome of one conditional increment.
type Hit struct {
	// Count is the window counter after this call. A denied hit reports
	// the unchanged counter.
	Count int64
	// ResetAt is when the current window expires.
	ResetAt time.Time
	// Allowed reports whether the hit fit within the limit.
	Allowed bool
}

// Store is the shared counter backend. Incr must be atomic per key: a
// check-then-increment race that admits more than limit hits per window is
// a Store bug, not acceptable drift.
type Store interface {
	Incr(ctx context.Context, key string, limit int64, window time.Duration) (Hit, error)
	Reset(ctx context.Context, key string) error
}
