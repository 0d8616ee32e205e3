package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goShield/internal/events"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	defer d.Close()

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), events.Event{ID: string(rune('a' + i)), UserID: "u1"})
	}

	for i := 0; i < 5; i++ {
		select {
		case got := <-sink.Events():
			if got.ID != string(rune('a'+i)) {
				t.Fatalf("event %d out of order: %s", i, got.ID)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	store := events.NewMemoryStore()
	sink := NewStoreSink(store, time.Second, nil)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 32}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), events.Event{ID: string(rune('0' + i)), UserID: "u1"})
	}
	d.Close()

	got, err := store.ListByUser(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected all 10 events delivered before Close returned, got %d", len(got))
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	// Nil dispatcher must be safe to use.
	d.Emit(context.Background(), events.Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestDropIfFullCounts(t *testing.T) {
	block := make(chan struct{})
	sink := sinkFunc(func(context.Context, events.Event) { <-block })
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 8; i++ {
		d.Emit(context.Background(), events.Event{})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events when buffer is full")
	}
	close(block)
	d.Close()
}

type sinkFunc func(context.Context, events.Event)

func (f sinkFunc) Emit(ctx context.Context, e events.Event) { f(ctx, e) }

type failingStore struct{ events.Store }

func (failingStore) Append(context.Context, events.Event) error {
	return errors.New("disk full")
}

func TestStoreSinkCountsFailures(t *testing.T) {
	sink := NewStoreSink(failingStore{}, time.Second, nil)
	sink.Emit(context.Background(), events.Event{UserID: "u1"})
	if sink.Failures() != 1 {
		t.Fatalf("expected 1 failure, got %d", sink.Failures())
	}
}
