package events

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func seedEvents(t *testing.T, store Store, userID string, n int) {
	t.Helper()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		err := store.Append(context.Background(), Event{
			ID:        fmt.Sprintf("%s-%d", userID, i),
			UserID:    userID,
			Type:      TypeLogin,
			IPAddress: "1.2.3.4",
			Success:   true,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
}

func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("ListMostRecentFirst", func(t *testing.T) {
		store := newStore(t)
		seedEvents(t, store, "u1", 5)

		got, err := store.ListByUser(context.Background(), "u1", 3)
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 events, got %d", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Timestamp.After(got[i-1].Timestamp) {
				t.Fatal("events not ordered most recent first")
			}
		}
		if got[0].ID != "u1-4" {
			t.Fatalf("expected newest event first, got %s", got[0].ID)
		}
	})

	t.Run("ListIsolatedPerUser", func(t *testing.T) {
		store := newStore(t)
		seedEvents(t, store, "u1", 2)
		seedEvents(t, store, "u2", 3)

		got, err := store.ListByUser(context.Background(), "u2", 0)
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 events for u2, got %d", len(got))
		}
	})

	t.Run("DeleteCascade", func(t *testing.T) {
		store := newStore(t)
		seedEvents(t, store, "u1", 4)

		if err := store.DeleteByUser(context.Background(), "u1"); err != nil {
			t.Fatalf("DeleteByUser failed: %v", err)
		}
		got, err := store.ListByUser(context.Background(), "u1", 10)
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected empty trail after delete, got %d", len(got))
		}
	})

	t.Run("MetadataRoundTrip", func(t *testing.T) {
		store := newStore(t)
		err := store.Append(context.Background(), Event{
			ID:        "m1",
			UserID:    "u1",
			Type:      TypeSuspiciousLogin,
			Success:   true,
			Timestamp: time.Now().UTC(),
			Metadata:  map[string]string{"reason": "new country", "country": "DE"},
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		got, err := store.ListByUser(context.Background(), "u1", 1)
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(got) != 1 || got[0].Metadata["reason"] != "new country" {
			t.Fatalf("metadata did not round trip: %+v", got)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		store, err := OpenSQLite(filepath.Join(t.TempDir(), "events.db"))
		if err != nil {
			t.Fatalf("OpenSQLite failed: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
