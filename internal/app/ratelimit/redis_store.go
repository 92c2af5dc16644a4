package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "ratelimit"

// incrScript keeps {count, reset} in a hash. reset is unix millis supplied by
// the caller, so every instance agrees on the window it is counting in.
var incrScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], 'reset')
local reset = raw and tonumber(raw)
local now = tonumber(ARGV[1])
if not reset or reset <= now then
	reset = now + tonumber(ARGV[2])
	redis.call('HSET', KEYS[1], 'count', 1, 'reset', reset)
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return {1, reset}
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, reset}
`)

// RedisStore keeps counters in Redis so several instances share one limit.
// Expiry is delegated to Redis key TTLs; no sweep is needed.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a store writing keys under prefix ("ratelimit" when empty).
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Incr(ctx context.Context, key string, now time.Time, window time.Duration) (Entry, error) {
	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}

	res, err := incrScript.Run(ctx, s.client, []string{s.key(key)}, now.UnixMilli(), windowMs).Int64Slice()
	if err != nil {
		return Entry{}, err
	}
	if len(res) != 2 {
		return Entry{}, fmt.Errorf("unexpected incr reply %v", res)
	}
	return Entry{Count: int(res[0]), ResetAt: time.UnixMilli(res[1]).UTC()}, nil
}
