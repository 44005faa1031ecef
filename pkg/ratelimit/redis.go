package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned by a fail-closed limiter whose backend is down.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Sliding window over a sorted set scored by admission time in milliseconds.
// KEYS[1] = window key
// ARGV[1] = limit, ARGV[2] = window ms, ARGV[3] = now ms, ARGV[4] = unique member
// Returns: {allowed, count, oldest_ms}
var slidingWindowScript = goredis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
    redis.call('ZADD', key, now, ARGV[4])
    count = count + 1
    allowed = 1
end
redis.call('PEXPIRE', key, window)

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = now
if oldest[2] then
    oldestScore = tonumber(oldest[2])
end
return {allowed, count, oldestScore}
`)

// Redis shares windows between several processes.
type Redis struct {
	client goredis.Scripter
	prefix string
	limit  int
	period time.Duration
	now    func() time.Time
}

// NewRedis creates a Redis-backed limiter. Keys are stored as prefix+key.
func NewRedis(client goredis.Scripter, prefix string, limit int, period time.Duration) *Redis {
	if limit < 1 {
		limit = 1
	}
	return &Redis{client: client, prefix: prefix, limit: limit, period: period, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()
	res, err := slidingWindowScript.Run(ctx, r.client, []string{r.prefix + key},
		r.limit, r.period.Milliseconds(), now.UnixMilli(), uuid.NewString()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}
	if len(res) < 3 {
		return Decision{}, fmt.Errorf("unexpected redis result format")
	}

	count := int(res[1])
	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   res[0] == 1,
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(res[2]).Add(r.period),
	}, nil
}

// Fallback tries Primary and uses Secondary when Primary fails, unless
// FailClosed is set, in which case ErrUnavailable is returned.
type Fallback struct {
	Primary    Limiter
	Secondary  Limiter
	FailClosed bool
	// OnError is told about every primary failure.
	OnError func(err error)
}

func (f *Fallback) Allow(ctx context.Context, key string) (Decision, error) {
	d, err := f.Primary.Allow(ctx, key)
	if err == nil {
		return d, nil
	}
	if f.OnError != nil {
		f.OnError(err)
	}
	if f.FailClosed || f.Secondary == nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return f.Secondary.Allow(ctx, key)
}
