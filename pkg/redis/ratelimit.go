package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window, counts, and admits atomically.
// KEYS[1] = window key
// ARGV = now_ms, window_start_ms, limit, window_ms, member
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, ARGV[5])
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end
	return {0, 0}
`)

// RateLimiter implements sliding window rate limiting using Redis.
// Several screener processes sharing one source quota use the same prefix.
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
	poll   time.Duration
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // source name: naver, dart, krx
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// PerSecond builds a one-second window config from a fractional rate.
// Rates below one per second widen the window instead.
func PerSecond(key string, rps float64) RateLimitConfig {
	if rps <= 0 {
		return RateLimitConfig{Key: key, Limit: math.MaxInt32, Window: time.Second}
	}
	if rps < 1 {
		return RateLimitConfig{Key: key, Limit: 1, Window: time.Duration(float64(time.Second) / rps)}
	}
	return RateLimitConfig{Key: key, Limit: int(rps), Window: time.Second}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		poll:   100 * time.Millisecond,
	}
}

func (r *RateLimiter) key(cfg RateLimitConfig) string {
	return fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
}

// Allow checks if a request is allowed under the rate limit
// Returns (allowed, remaining, error)
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, nil
	}

	now := time.Now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{r.key(cfg)},
		now,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
		uuid.NewString(),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("rate limit script returned %d values", len(result))
	}

	allowed, _ := result[0].(int64)
	remaining, _ := result[1].(int64)

	return allowed == 1, int(remaining), nil
}

// Wait blocks until a request is allowed or context is cancelled
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.poll):
		}
	}
}

// Bound pins a config to the limiter so callers only pass a context
type Bound struct {
	limiter *RateLimiter
	cfg     RateLimitConfig
}

// For returns a limiter bound to one source config
func (r *RateLimiter) For(cfg RateLimitConfig) *Bound {
	return &Bound{limiter: r, cfg: cfg}
}

// Wait blocks until the bound source admits another request
func (b *Bound) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx, b.cfg)
}
