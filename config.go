package goShield

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines a public type used by goShield APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// ServiceSecret is the key material for encrypting TOTP secrets and
	// backup codes at rest. Required, never logged.
	ServiceSecret string
	Issuer        string
	TOTP          TOTPConfig
	BackupCodes   BackupCodeConfig
	RateLimit     RateLimitConfig
	Password      PasswordConfig
	Breach        BreachConfig
	Risk          RiskConfig
	Geo           GeoConfig
	Notify        NotifyConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig defines a public type used by goShield APIs.
//
// TOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPConfig struct {
	Digits    int
	Period    int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
	Skew      int
	// EnforceReplayProtection rejects any code whose time-step counter
	// does not advance past the last accepted one. With skew enabled a
	// captured code stays valid for several periods, so leave this on.
	EnforceReplayProtection bool
}

// BackupCodeConfig defines a public type used by goShield APIs.
//
// BackupCodeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BackupCodeConfig struct {
	Count  int
	Length int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// BucketPolicy defines a public type used by goShield APIs.
//
// BucketPolicy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BucketPolicy struct {
	Window time.Duration
	Max    int
	// FailOpen admits traffic when the limiter backend is unavailable.
	// Leave false for credential-guarding buckets.
	FailOpen bool
}

// RateLimitConfig defines a public type used by goShield APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	RedisPrefix   string
	SweepInterval time.Duration
	// Buckets overrides or extends the built-in bucket policies. Keys are
	// bucket names; built-in names keep their defaults unless re-declared.
	Buckets map[string]BucketPolicy
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by goShield APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
BREACH CONFIG
====================================
*/

// BreachConfig defines a public type used by goShield APIs.
//
// BreachConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BreachConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
	// Denylist extends the built-in list of always-rejected passwords.
	Denylist []string
}

/*
====================================
RISK CONFIG
====================================
*/

// RiskConfig defines a public type used by goShield APIs.
//
// RiskConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RiskConfig struct {
	HistoryDepth   int
	VelocityWindow time.Duration
	FlagNewDevice  bool
}

// GeoConfig defines a public type used by goShield APIs.
//
// GeoConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GeoConfig struct {
	Timeout time.Duration
}

// NotifyConfig defines a public type used by goShield APIs.
//
// NotifyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type NotifyConfig struct {
	Timeout time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by goShield APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// StoreTimeout bounds each event store write made by the dispatcher.
	StoreTimeout time.Duration
}

// MetricsConfig defines a public type used by goShield APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Issuer: "goShield",
		TOTP: TOTPConfig{
			Digits:                  6,
			Period:                  30,
			Algorithm:               "SHA1",
			Skew:                    2,
			EnforceReplayProtection: true,
		},
		BackupCodes: BackupCodeConfig{
			Count:  8,
			Length: 8,
		},
		RateLimit: RateLimitConfig{
			RedisPrefix:   "shield",
			SweepInterval: 5 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Breach: BreachConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
		},
		Risk: RiskConfig{
			HistoryDepth:   10,
			VelocityWindow: 1 * time.Hour,
			FlagNewDevice:  true,
		},
		Geo: GeoConfig{
			Timeout: 3 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:      true,
			BufferSize:   1024,
			DropIfFull:   false,
			StoreTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.RateLimit.Buckets != nil {
		out.RateLimit.Buckets = make(map[string]BucketPolicy, len(cfg.RateLimit.Buckets))
		for name, policy := range cfg.RateLimit.Buckets {
			out.RateLimit.Buckets[name] = policy
		}
	}
	if cfg.Breach.Denylist != nil {
		out.Breach.Denylist = append([]string(nil), cfg.Breach.Denylist...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.ServiceSecret == "" {
		return errors.New("ServiceSecret is required")
	}

	// TOTP
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 10 {
		return errors.New("TOTP Digits must be between 6 and 10")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP Period must be > 0")
	}
	switch c.TOTP.Algorithm {
	case "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("unsupported TOTP algorithm")
	}
	if c.TOTP.Skew < 0 {
		return errors.New("TOTP Skew must be >= 0")
	}

	// Backup codes
	if c.BackupCodes.Count <= 0 {
		return errors.New("BackupCodes Count must be > 0")
	}
	if c.BackupCodes.Length < 6 {
		return errors.New("BackupCodes Length must be >= 6")
	}

	// Rate limit
	for name, policy := range c.RateLimit.Buckets {
		if name == "" {
			return errors.New("rate limit bucket name must not be empty")
		}
		if policy.Window <= 0 {
			return fmt.Errorf("rate limit bucket %q Window must be > 0", name)
		}
		if policy.Max <= 0 {
			return fmt.Errorf("rate limit bucket %q Max must be > 0", name)
		}
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time == 0 {
		return errors.New("Password Time must be > 0")
	}
	if c.Password.Parallelism == 0 {
		return errors.New("Password Parallelism must be > 0")
	}
	if c.Password.SaltLength < 8 {
		return errors.New("Password SaltLength must be >= 8")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Breach
	if c.Breach.Enabled && c.Breach.Timeout <= 0 {
		return errors.New("Breach Timeout must be > 0 when Breach is enabled")
	}

	// Risk
	if c.Risk.HistoryDepth <= 0 {
		return errors.New("Risk HistoryDepth must be > 0")
	}
	if c.Risk.VelocityWindow <= 0 {
		return errors.New("Risk VelocityWindow must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}

/*
====================================
FILE LOADING
====================================
*/

// fileConfig is the YAML shape of Config. Durations are strings in
// time.ParseDuration syntax ("15m", "1h30m").
type fileConfig struct {
	ServiceSecret string `yaml:"service_secret"`
	Issuer        string `yaml:"issuer"`
	TOTP          struct {
		Digits                  int    `yaml:"digits"`
		Period                  int    `yaml:"period"`
		Algorithm               string `yaml:"algorithm"`
		Skew                    int    `yaml:"skew"`
		EnforceReplayProtection *bool  `yaml:"enforce_replay_protection"`
	} `yaml:"totp"`
	BackupCodes struct {
		Count  int `yaml:"count"`
		Length int `yaml:"length"`
	} `yaml:"backup_codes"`
	RateLimit struct {
		RedisPrefix   string                      `yaml:"redis_prefix"`
		SweepInterval string                      `yaml:"sweep_interval"`
		Buckets       map[string]fileBucketPolicy `yaml:"buckets"`
	} `yaml:"rate_limit"`
	Password struct {
		Memory      uint32 `yaml:"memory_kb"`
		Time        uint32 `yaml:"time"`
		Parallelism uint8  `yaml:"parallelism"`
		SaltLength  uint32 `yaml:"salt_length"`
		KeyLength   uint32 `yaml:"key_length"`
	} `yaml:"password"`
	Breach struct {
		Enabled  *bool    `yaml:"enabled"`
		BaseURL  string   `yaml:"base_url"`
		Timeout  string   `yaml:"timeout"`
		Denylist []string `yaml:"denylist"`
	} `yaml:"breach"`
	Risk struct {
		HistoryDepth   int    `yaml:"history_depth"`
		VelocityWindow string `yaml:"velocity_window"`
		FlagNewDevice  *bool  `yaml:"flag_new_device"`
	} `yaml:"risk"`
	Geo struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"geo"`
	Notify struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"notify"`
	Audit struct {
		Enabled      *bool  `yaml:"enabled"`
		BufferSize   int    `yaml:"buffer_size"`
		DropIfFull   bool   `yaml:"drop_if_full"`
		StoreTimeout string `yaml:"store_timeout"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

type fileBucketPolicy struct {
	Window   string `yaml:"window"`
	Max      int    `yaml:"max"`
	FailOpen bool   `yaml:"fail_open"`
}

// LoadConfigFile reads a YAML configuration file and merges it over the
// built-in defaults. The GOSHIELD_SERVICE_SECRET environment variable
// overrides the file value so the secret can stay out of the file entirely.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := defaultConfig()
	cfg.ServiceSecret = fc.ServiceSecret
	if fc.Issuer != "" {
		cfg.Issuer = fc.Issuer
	}
	if fc.TOTP.Digits != 0 {
		cfg.TOTP.Digits = fc.TOTP.Digits
	}
	if fc.TOTP.Period != 0 {
		cfg.TOTP.Period = fc.TOTP.Period
	}
	if fc.TOTP.Algorithm != "" {
		cfg.TOTP.Algorithm = fc.TOTP.Algorithm
	}
	if fc.TOTP.Skew != 0 {
		cfg.TOTP.Skew = fc.TOTP.Skew
	}
	if fc.TOTP.EnforceReplayProtection != nil {
		cfg.TOTP.EnforceReplayProtection = *fc.TOTP.EnforceReplayProtection
	}
	if fc.BackupCodes.Count != 0 {
		cfg.BackupCodes.Count = fc.BackupCodes.Count
	}
	if fc.BackupCodes.Length != 0 {
		cfg.BackupCodes.Length = fc.BackupCodes.Length
	}
	if fc.RateLimit.RedisPrefix != "" {
		cfg.RateLimit.RedisPrefix = fc.RateLimit.RedisPrefix
	}
	if err := overrideDuration(&cfg.RateLimit.SweepInterval, fc.RateLimit.SweepInterval, "rate_limit.sweep_interval"); err != nil {
		return Config{}, err
	}
	if len(fc.RateLimit.Buckets) > 0 {
		cfg.RateLimit.Buckets = make(map[string]BucketPolicy, len(fc.RateLimit.Buckets))
		for name, fp := range fc.RateLimit.Buckets {
			window, err := time.ParseDuration(fp.Window)
			if err != nil {
				return Config{}, fmt.Errorf("invalid window for bucket %q: %w", name, err)
			}
			cfg.RateLimit.Buckets[name] = BucketPolicy{
				Window:   window,
				Max:      fp.Max,
				FailOpen: fp.FailOpen,
			}
		}
	}
	if fc.Password.Memory != 0 {
		cfg.Password.Memory = fc.Password.Memory
	}
	if fc.Password.Time != 0 {
		cfg.Password.Time = fc.Password.Time
	}
	if fc.Password.Parallelism != 0 {
		cfg.Password.Parallelism = fc.Password.Parallelism
	}
	if fc.Password.SaltLength != 0 {
		cfg.Password.SaltLength = fc.Password.SaltLength
	}
	if fc.Password.KeyLength != 0 {
		cfg.Password.KeyLength = fc.Password.KeyLength
	}
	if fc.Breach.Enabled != nil {
		cfg.Breach.Enabled = *fc.Breach.Enabled
	}
	if fc.Breach.BaseURL != "" {
		cfg.Breach.BaseURL = fc.Breach.BaseURL
	}
	if err := overrideDuration(&cfg.Breach.Timeout, fc.Breach.Timeout, "breach.timeout"); err != nil {
		return Config{}, err
	}
	if len(fc.Breach.Denylist) > 0 {
		cfg.Breach.Denylist = fc.Breach.Denylist
	}
	if fc.Risk.HistoryDepth != 0 {
		cfg.Risk.HistoryDepth = fc.Risk.HistoryDepth
	}
	if err := overrideDuration(&cfg.Risk.VelocityWindow, fc.Risk.VelocityWindow, "risk.velocity_window"); err != nil {
		return Config{}, err
	}
	if fc.Risk.FlagNewDevice != nil {
		cfg.Risk.FlagNewDevice = *fc.Risk.FlagNewDevice
	}
	if err := overrideDuration(&cfg.Geo.Timeout, fc.Geo.Timeout, "geo.timeout"); err != nil {
		return Config{}, err
	}
	if err := overrideDuration(&cfg.Notify.Timeout, fc.Notify.Timeout, "notify.timeout"); err != nil {
		return Config{}, err
	}
	if fc.Audit.Enabled != nil {
		cfg.Audit.Enabled = *fc.Audit.Enabled
	}
	if fc.Audit.BufferSize != 0 {
		cfg.Audit.BufferSize = fc.Audit.BufferSize
	}
	cfg.Audit.DropIfFull = fc.Audit.DropIfFull
	if err := overrideDuration(&cfg.Audit.StoreTimeout, fc.Audit.StoreTimeout, "audit.store_timeout"); err != nil {
		return Config{}, err
	}
	if fc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *fc.Metrics.Enabled
	}

	if secret := os.Getenv("GOSHIELD_SERVICE_SECRET"); secret != "" {
		cfg.ServiceSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func overrideDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", field, err)
	}
	*dst = d
	return nil
}
