// Package notify runs fire-and-forget side effects (email and push alerts)
// off the request path.
//
// Every task gets its own goroutine and a bounded timeout; failures are
// logged and swallowed so a broken mail relay can never fail a login.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultTimeout = 10 * time.Second

// Dispatcher schedules best-effort background tasks.
type Dispatcher struct {
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher with a per-task timeout.
func NewDispatcher(timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{timeout: timeout, logger: logger}
}

// Go runs fn on its own goroutine detached from the caller's context
// lifetime but bounded by the dispatcher timeout. Errors are logged, never
// returned.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	if d == nil || fn == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.logger.Warn("background notification failed", "task", name, "error", err)
		}
	}()
}

// Close waits for in-flight tasks to finish.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
