// Package goShield provides an account security engine with sliding-window
// rate limiting, TOTP two-factor authentication, single-use backup codes,
// breach-corpus password screening, heuristic login risk scoring, and an
// append-only security event trail.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goShield is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, SecurityReport, MetricsSnapshot, etc.). All
// internal coordination — rate limit accounting, secret encryption, code
// generation, risk heuristics, audit dispatch — lives under internal/ and is
// never exported.
//
// # What this package must NOT do
//
//   - Hold sessions or issue tokens. goShield decides whether an action is
//     allowed and safe; the host owns the session layer.
//   - Persist account profiles. The host supplies an [AccountStore]; goShield
//     only defines what a profile must carry.
//   - Expose plaintext TOTP secrets or backup codes anywhere except the
//     single enrollment or generation response that creates them.
//
// # Performance contract
//
// Login and AllowRequest are the hot paths. Each is allowed one limiter
// round-trip and one profile read; event writes are asynchronous and never
// block the caller. Breach lookups happen only on registration and password
// change, never on login.
package goShield
