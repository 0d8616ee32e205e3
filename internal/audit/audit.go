// Package audit delivers security events to sinks without ever blocking or
// failing the authentication flow that produced them.
//
// # Architecture boundaries
//
// The [Dispatcher] decouples event production from persistence: Emit is a
// buffered handoff, delivery happens on a single background goroutine.
// Durable storage is just another [Sink] ([StoreSink]).
//
// # What this package must NOT do
//
//   - Return delivery errors to callers. Logging is observability, not a
//     correctness gate; failures are logged and counted.
//   - Reorder events from a single producer.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goShield/internal/events"
)

// Sink receives dispatched events.
type Sink interface {
	Emit(ctx context.Context, event events.Event)
}

// NoOpSink drops events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, events.Event) {}

// ChannelSink forwards events into a buffered channel, mainly for tests
// and host-side streaming.
type ChannelSink struct {
	events chan events.Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan events.Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event events.Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan events.Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event events.Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// StoreSink persists events to an [events.Store] with a bounded timeout per
// write. A failed write is logged and counted, never surfaced.
type StoreSink struct {
	store    events.Store
	timeout  time.Duration
	logger   *slog.Logger
	failures atomic.Uint64
}

func NewStoreSink(store events.Store, timeout time.Duration, logger *slog.Logger) *StoreSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreSink{store: store, timeout: timeout, logger: logger}
}

func (s *StoreSink) Emit(ctx context.Context, event events.Event) {
	if s == nil || s.store == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.store.Append(writeCtx, event); err != nil {
		s.failures.Add(1)
		s.logger.Error("security event write failed",
			"event_type", string(event.Type), "user_id", event.UserID, "error", err)
	}
}

// Failures reports how many writes have been dropped.
func (s *StoreSink) Failures() uint64 {
	if s == nil {
		return 0
	}
	return s.failures.Load()
}

// MultiSink fans one event out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event events.Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}
