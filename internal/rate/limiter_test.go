package rate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func testPolicies() map[string]Policy {
	return map[string]Policy{
		"auth": {Window: 15 * time.Minute, Max: 3},
		"api":  {Window: time.Minute, Max: 60, FailOpen: true},
	}
}

func TestCheckDeniesBeyondMaxWithoutIncrementing(t *testing.T) {
	store := NewMemoryStore()
	limiter := NewLimiter(store, testPolicies(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Check(ctx, "auth", "1.2.3.4")
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("call %d unexpectedly denied", i+1)
		}
		if res.Remaining != 2-i {
			t.Fatalf("call %d remaining = %d, want %d", i+1, res.Remaining, 2-i)
		}
	}

	for i := 0; i < 5; i++ {
		res, err := limiter.Check(ctx, "auth", "1.2.3.4")
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if res.Allowed {
			t.Fatal("expected denial beyond max")
		}
		if res.Remaining != 0 {
			t.Fatalf("remaining = %d, want 0", res.Remaining)
		}
	}

	// Denied hits must not advance the counter.
	if got := store.entries["auth:1.2.3.4"].count; got != 3 {
		t.Fatalf("counter = %d, want 3", got)
	}
}

func TestWindowExpiryResetsToOne(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	limiter := NewLimiter(store, testPolicies(), nil)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := limiter.Check(ctx, "auth", "k"); err != nil {
			t.Fatalf("Check failed: %v", err)
		}
	}

	now = now.Add(15*time.Minute + time.Second)

	res, err := limiter.Check(ctx, "auth", "k")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected fresh window to allow")
	}
	if got := store.entries["auth:k"].count; got != 1 {
		t.Fatalf("counter after reset = %d, want 1", got)
	}
	if want := now.Add(15 * time.Minute); !res.ResetAt.Equal(want) {
		t.Fatalf("ResetAt = %v, want %v", res.ResetAt, want)
	}
}

func TestResetClearsEarly(t *testing.T) {
	store := NewMemoryStore()
	limiter := NewLimiter(store, testPolicies(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := limiter.Check(ctx, "auth", "k"); err != nil {
			t.Fatalf("Check failed: %v", err)
		}
	}
	if err := limiter.Reset(ctx, "auth", "k"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	res, err := limiter.Check(ctx, "auth", "k")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.Allowed || res.Remaining != 2 {
		t.Fatalf("expected fresh budget after reset, got %+v", res)
	}
}

func TestUnknownBucket(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore(), testPolicies(), nil)
	if _, err := limiter.Check(context.Background(), "bogus", "k"); !errors.Is(err, ErrUnknownBucket) {
		t.Fatalf("expected ErrUnknownBucket, got %v", err)
	}
}

func TestConcurrentIncrementsAreLinearizable(t *testing.T) {
	store := NewMemoryStore()
	limiter := NewLimiter(store, map[string]Policy{
		"auth": {Window: time.Minute, Max: 50},
	}, nil)
	ctx := context.Background()

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				res, err := limiter.Check(ctx, "auth", "shared")
				if err != nil {
					t.Errorf("Check failed: %v", err)
					return
				}
				if res.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Fatalf("allowed %d hits, want exactly 50", allowed)
	}
	if got := store.entries["auth:shared"].count; got != 50 {
		t.Fatalf("counter = %d, want 50", got)
	}
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, int64, time.Duration) (Hit, error) {
	return Hit{}, ErrStoreUnavailable
}
func (failingStore) Reset(context.Context, string) error { return ErrStoreUnavailable }

func TestStoreFailurePolicy(t *testing.T) {
	limiter := NewLimiter(failingStore{}, testPolicies(), nil)
	ctx := context.Background()

	// Security-sensitive bucket: surface the failure, caller denies.
	if _, err := limiter.Check(ctx, "auth", "k"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable for auth bucket, got %v", err)
	}

	// Availability bucket: fail open.
	res, err := limiter.Check(ctx, "api", "k")
	if err != nil {
		t.Fatalf("expected api bucket to fail open, got %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected api bucket to allow on store failure")
	}
}

func TestSweepReclaimsExpiredOnly(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := store.Incr(ctx, "short", 5, time.Minute); err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	if _, err := store.Incr(ctx, "long", 5, time.Hour); err != nil {
		t.Fatalf("Incr failed: %v", err)
	}

	now = now.Add(2 * time.Minute)
	store.sweep()

	if store.size() != 1 {
		t.Fatalf("expected one surviving entry, got %d", store.size())
	}
	if _, ok := store.entries["long"]; !ok {
		t.Fatal("unexpired entry was swept")
	}
}
