package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// incrScript increments the counter, arms its expiry on the first hit and
// returns {count, pttl} in one round trip.
var incrScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

type store struct {
	client goredis.Scripter
}

// New returns a counter store shared by every API instance.
func New(client goredis.Scripter) *store {
	return &store{client: client}
}

func (s *store) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	reply, err := incrScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	res, ok := reply.([]interface{})
	if !ok || len(res) != 2 {
		return 0, 0, fmt.Errorf("redis incr %s: unexpected reply %v", key, reply)
	}

	count, ok := res[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("redis incr %s: unexpected count %T", key, res[0])
	}
	ttl, ok := res[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("redis incr %s: unexpected ttl %T", key, res[1])
	}

	return count, time.Duration(ttl) * time.Millisecond, nil
}
