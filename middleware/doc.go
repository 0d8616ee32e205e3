// Package middleware exposes HTTP adapters for goShield.Engine: client
// metadata extraction and per-bucket rate limit enforcement.
//
// # Adapters
//
//   - [ClientMetadata] — extracts client IP, User-Agent, and device ID from
//     the request and attaches them to the request context.
//   - [RateLimit] — checks one named bucket via Engine.AllowRequest and
//     rejects over-budget callers with 429 and a Retry-After header.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement throttling or security logic itself — all decisions are
// delegated to the Engine.
//
// # What this package must NOT do
//
//   - Keep its own counters or budgets (the Engine owns rate state).
//   - Trust client-supplied forwarding headers when untrusted mode is
//     selected.
//   - Write response bodies beyond the minimal rejection message.
package middleware
