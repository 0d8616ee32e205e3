// Package rate enforces sliding-window request budgets keyed by
// (bucket, client identifier).
//
// A window resets entirely on expiry: the first hit after ResetAt starts a
// fresh count of 1. Denied hits never advance the counter, so the budget is
// exactly max allowed hits per window.
//
// # Architecture boundaries
//
// Counter state lives behind [Store]. [MemoryStore] is the single-process
// default and owns the periodic sweep of expired records; [RedisStore]
// backs multi-instance deployments and performs the conditional increment
// in a single Lua script so concurrent hits for one key are linearizable.
//
// # What this package must NOT do
//
//   - Decide what a denial means for a caller. Fail-open vs fail-closed on
//     store failure is per-bucket policy; the engine maps denials to its
//     own error taxonomy.
//   - Sleep or retry. Retry-after is surfaced via [Result.ResetAt].
package rate
