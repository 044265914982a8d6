package httpx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests per key in fixed windows stored in Redis, so every replica
// shares one budget.
type RedisLimiter struct {
	rdb    redis.Scripter
	limit  int64
	window time.Duration
	prefix string
}

// The first hit of a window sets its expiry; later hits only increment.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func NewRedisLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string) *RedisLimiter {
	l := &RedisLimiter{rdb: rdb, limit: 60, window: time.Minute, prefix: "rl"}
	if limit > 0 {
		l.limit = int64(limit)
	}
	if window > 0 {
		l.window = window
	}
	if p := strings.TrimSpace(prefix); p != "" {
		l.prefix = p
	}
	return l
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := time.Now().UnixMilli() / l.window.Milliseconds()
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)
	n, err := incrWindow.Run(ctx, l.rdb, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return n <= l.limit, nil
}
