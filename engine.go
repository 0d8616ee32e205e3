package goShield

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goShield/internal/audit"
	"github.com/MrEthical07/goShield/internal/breach"
	"github.com/MrEthical07/goShield/internal/events"
	"github.com/MrEthical07/goShield/internal/notify"
	"github.com/MrEthical07/goShield/internal/rate"
	"github.com/MrEthical07/goShield/internal/risk"
	"github.com/MrEthical07/goShield/internal/secretbox"
	"github.com/MrEthical07/goShield/internal/totp"
	"github.com/MrEthical07/goShield/password"
)

const unknownLocation = "Unknown"

// Engine defines a public type used by goShield APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config    Config
	codec     *secretbox.Codec
	limiter   *rate.Limiter
	rateStore *rate.MemoryStore // non-nil only when the engine owns the store
	hasher    *password.Hasher
	totp      *totp.Manager
	breach    *breach.Checker
	risk      *risk.Evaluator
	accounts  AccountStore
	events    EventStore
	audit     *audit.Dispatcher
	storeSink *audit.StoreSink
	notifier  Notifier
	notify    *notify.Dispatcher
	geo       GeoResolver
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.notify != nil {
		e.notify.Close()
	}
	if e.rateStore != nil {
		e.rateStore.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditWriteFailures describes the auditwritefailures operation and its observable behavior.
//
// AuditWriteFailures may return an error when input validation, dependency calls, or security checks fail.
// AuditWriteFailures does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditWriteFailures() uint64 {
	if e == nil || e.storeSink == nil {
		return 0
	}
	return e.storeSink.Failures()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// clientKey is the rate limiting key for the caller. Falls back to a
// shared key when no IP was attached, so unattributed traffic still
// shares one budget instead of bypassing the limiter.
func (e *Engine) clientKey(ctx context.Context) string {
	if ip := clientIPFromContext(ctx); ip != "" {
		return ip
	}
	return "unknown"
}

// checkRate runs one limiter check and maps the outcome to the public
// error surface. A nil error means the request is admitted.
func (e *Engine) checkRate(ctx context.Context, bucket string, limited MetricID) error {
	result, err := e.limiter.Check(ctx, bucket, e.clientKey(ctx))
	if err != nil {
		if errors.Is(err, rate.ErrUnknownBucket) {
			return ErrUnknownBucket
		}
		policy, _ := e.limiter.Policy(bucket)
		e.metricInc(limited)
		e.logger.Warn("rate limiter unavailable, denying", "bucket", bucket, "error", err)
		return &RateLimitError{Bucket: bucket, RetryAfter: policy.Window}
	}
	if !result.Allowed {
		e.metricInc(limited)
		e.metricInc(MetricRateLimitHit)
		return &RateLimitError{Bucket: bucket, RetryAfter: e.retryAfter(result)}
	}
	return nil
}

// emitEvent stamps and queues one security event. The write is
// asynchronous; login latency never waits on the event store.
func (e *Engine) emitEvent(ctx context.Context, userID string, eventType EventType, success bool, description, location string, metadata map[string]string) {
	if e.audit == nil {
		return
	}
	e.audit.Emit(ctx, events.Event{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        eventType,
		Description: description,
		IPAddress:   clientIPFromContext(ctx),
		UserAgent:   userAgentFromContext(ctx),
		Location:    location,
		DeviceType:  deviceIDFromContext(ctx),
		Success:     success,
		Timestamp:   e.now().UTC(),
		Metadata:    metadata,
	})
}

// locationFor resolves the caller's IP to "City, Country". Resolution is
// best-effort: any failure, missing resolver, or missing IP yields
// "Unknown", which the risk heuristics ignore.
func (e *Engine) locationFor(ctx context.Context, ip string) string {
	if e.geo == nil || ip == "" {
		return unknownLocation
	}

	geoCtx, cancel := context.WithTimeout(ctx, e.config.Geo.Timeout)
	defer cancel()

	location, err := e.geo.Resolve(geoCtx, ip)
	if err != nil || location == "" {
		if err != nil {
			e.logger.Debug("geo resolution failed", "error", err)
		}
		return unknownLocation
	}
	return location
}

// recentLoginSamples loads the successful login history used by the risk
// evaluator, most recent first. A missing or failing event store yields an
// empty history, which never flags.
func (e *Engine) recentLoginSamples(ctx context.Context, userID string) []risk.Sample {
	if e.events == nil {
		return nil
	}

	// Over-fetch: the window also contains failures and non-login events.
	evs, err := e.events.ListByUser(ctx, userID, e.config.Risk.HistoryDepth*4)
	if err != nil {
		e.logger.Warn("event history unavailable for risk evaluation", "error", err)
		return nil
	}

	samples := make([]risk.Sample, 0, e.config.Risk.HistoryDepth)
	for _, ev := range evs {
		if !ev.Success {
			continue
		}
		switch ev.Type {
		case events.TypeLogin, events.TypeSuspiciousLogin:
		default:
			continue
		}
		samples = append(samples, risk.Sample{
			Time:     ev.Timestamp,
			IP:       ev.IPAddress,
			Location: ev.Location,
			Device:   ev.DeviceType,
		})
		if len(samples) == e.config.Risk.HistoryDepth {
			break
		}
	}
	return samples
}
