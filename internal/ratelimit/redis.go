package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/snupai/shortlink/internal/utils"
)

// KeyPrefix namespaces limiter keys in Redis
const KeyPrefix = "rate_limit:"

// slidingWindowScript trims the sorted set to the window, counts it and
// records the request when under the limit. Scores are unix milliseconds.
//
// KEYS[1] subject key
// ARGV: now, cutoff, limit, member, ttl ms
// Returns {allowed, count before insert, oldest score}
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[2])
local count = redis.call('ZCARD', key)
local allowed = 0
if count < tonumber(ARGV[3]) then
	redis.call('ZADD', key, ARGV[1], ARGV[4])
	redis.call('PEXPIRE', key, ARGV[5])
	allowed = 1
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local score = tonumber(ARGV[1])
if #oldest > 0 then
	score = tonumber(oldest[2])
end
return {allowed, count, score}
`)

// RedisLimiter keeps each subject's window in a sorted set. The script runs
// atomically, so the limit is exact across instances.
type RedisLimiter struct {
	client redis.Scripter
	cfg    Config
}

// NewRedisLimiter creates a Redis backed limiter
func NewRedisLimiter(client redis.Scripter, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, cfg: cfg}
}

// CheckAndRecord implements Limiter
func (l *RedisLimiter) CheckAndRecord(ctx context.Context, subject string) (Decision, error) {
	now := l.cfg.now()
	nowMs := now.UnixMilli()
	cutoffMs := now.Add(-l.cfg.Window).UnixMilli()

	id, err := utils.GenerateID()
	if err != nil {
		return Decision{}, err
	}

	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{KeyPrefix + subject},
		strconv.FormatInt(nowMs, 10),
		strconv.FormatInt(cutoffMs, 10),
		l.cfg.Limit,
		strconv.FormatInt(id, 10),
		(2 * l.cfg.Window).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}

	d := decide(l.cfg, res[1], time.UnixMilli(res[2]).UTC())
	if (res[0] == 1) != d.Allowed {
		// the script is authoritative
		d.Allowed = res[0] == 1
		if !d.Allowed {
			d.Remaining = 0
		}
	}
	return d, nil
}
