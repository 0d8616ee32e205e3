package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript performs the conditional increment atomically server-side:
// at or over the limit the counter is left untouched, otherwise it is
// incremented and the window TTL is set on first hit.
var incrScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[1]) then
  return {count, redis.call('PTTL', KEYS[1]), 0}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {count, redis.call('PTTL', KEYS[1]), 1}
`)

// RedisStore backs the limiter with shared counters for multi-instance
// deployments.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. Keys are namespaced under prefix
// (default "shield:rl:").
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "shield:rl:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Incr implements [Store].
func (s *RedisStore) Incr(ctx context.Context, key string, limit int64, window time.Duration) (Hit, error) {
	res, err := incrScript.Run(ctx, s.client, []string{s.prefix + key}, limit, window.Milliseconds()).Result()
	if err != nil {
		return Hit{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Hit{}, fmt.Errorf("%w: unexpected script reply %T", ErrStoreUnavailable, res)
	}
	count, _ := values[0].(int64)
	ttlMillis, _ := values[1].(int64)
	allowed, _ := values[2].(int64)

	resetAt := time.Now().Add(window)
	if ttlMillis > 0 {
		resetAt = time.Now().Add(time.Duration(ttlMillis) * time.Millisecond)
	}

	return Hit{Count: count, ResetAt: resetAt, Allowed: allowed == 1}, nil
}

// Reset implements [Store].
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
