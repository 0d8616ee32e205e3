package goShield

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goShield/internal/audit"
	"github.com/MrEthical07/goShield/internal/breach"
	"github.com/MrEthical07/goShield/internal/notify"
	"github.com/MrEthical07/goShield/internal/rate"
	"github.com/MrEthical07/goShield/internal/risk"
	"github.com/MrEthical07/goShield/internal/secretbox"
	"github.com/MrEthical07/goShield/internal/totp"
	"github.com/MrEthical07/goShield/password"
)

// Builder defines a public type used by goShield APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	accounts AccountStore
	events   EventStore
	sink     AuditSink
	notifier Notifier
	geo      GeoResolver
	logger   *slog.Logger

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAccountStore describes the withaccountstore operation and its observable behavior.
//
// WithAccountStore may return an error when input validation, dependency calls, or security checks fail.
// WithAccountStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithEventStore describes the witheventstore operation and its observable behavior.
//
// WithEventStore may return an error when input validation, dependency calls, or security checks fail.
// WithEventStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEventStore(store EventStore) *Builder {
	b.events = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithNotifier describes the withnotifier operation and its observable behavior.
//
// WithNotifier may return an error when input validation, dependency calls, or security checks fail.
// WithNotifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithGeoResolver describes the withgeoresolver operation and its observable behavior.
//
// WithGeoResolver may return an error when input validation, dependency calls, or security checks fail.
// WithGeoResolver does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithGeoResolver(r GeoResolver) *Builder {
	b.geo = r
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.accounts == nil {
		return nil, errors.New("account store required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- SECRET CODEC --------
	codec, err := secretbox.New(cfg.ServiceSecret)
	if err != nil {
		return nil, err
	}

	// -------- RATE LIMITER --------
	policies := rate.DefaultPolicies()
	for name, policy := range cfg.RateLimit.Buckets {
		policies[name] = rate.Policy{
			Window:   policy.Window,
			Max:      policy.Max,
			FailOpen: policy.FailOpen,
		}
	}

	var rateStore rate.Store
	var memStore *rate.MemoryStore
	if b.redis != nil {
		rateStore = rate.NewRedisStore(b.redis, cfg.RateLimit.RedisPrefix)
	} else {
		memStore = rate.NewMemoryStore()
		memStore.StartSweep(cfg.RateLimit.SweepInterval)
		rateStore = memStore
	}

	// -------- PASSWORD HASHING --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		if memStore != nil {
			memStore.Close()
		}
		return nil, err
	}

	// -------- BREACH CHECKER --------
	var breachChecker *breach.Checker
	if cfg.Breach.Enabled {
		breachChecker = breach.New(breach.Config{
			BaseURL:  cfg.Breach.BaseURL,
			Timeout:  cfg.Breach.Timeout,
			Denylist: cfg.Breach.Denylist,
		}, logger)
	}

	// -------- AUDIT PIPELINE --------
	var dispatcher *audit.Dispatcher
	var storeSink *audit.StoreSink
	if cfg.Audit.Enabled {
		sinks := make(audit.MultiSink, 0, 2)
		if b.events != nil {
			storeSink = audit.NewStoreSink(b.events, cfg.Audit.StoreTimeout, logger)
			sinks = append(sinks, storeSink)
		}
		if b.sink != nil {
			sinks = append(sinks, b.sink)
		}
		if len(sinks) > 0 {
			dispatcher = audit.NewDispatcher(audit.Config{
				Enabled:    true,
				BufferSize: cfg.Audit.BufferSize,
				DropIfFull: cfg.Audit.DropIfFull,
			}, sinks)
		}
	}

	engine := &Engine{
		config:    cfg,
		codec:     codec,
		limiter:   rate.NewLimiter(rateStore, policies, logger),
		rateStore: memStore,
		hasher:    hasher,
		totp: totp.NewManager(totp.Config{
			Issuer:    cfg.Issuer,
			Digits:    cfg.TOTP.Digits,
			Period:    cfg.TOTP.Period,
			Algorithm: cfg.TOTP.Algorithm,
			Skew:      cfg.TOTP.Skew,
		}),
		breach: breachChecker,
		risk: risk.New(risk.Config{
			HistoryDepth:   cfg.Risk.HistoryDepth,
			VelocityWindow: cfg.Risk.VelocityWindow,
			FlagNewDevice:  cfg.Risk.FlagNewDevice,
		}),
		accounts:  b.accounts,
		events:    b.events,
		audit:     dispatcher,
		storeSink: storeSink,
		notifier:  b.notifier,
		notify:    notify.NewDispatcher(cfg.Notify.Timeout, logger),
		geo:       b.geo,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger,
		now:       time.Now,
	}

	b.built = true

	return engine, nil
}
