// Package ratelimit provides a redis-backed fixed-window rate limiter for
// the request endpoints that enqueue expensive work (comparison runs and
// diff generation).
package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Fixed window counter. Returns {allowed, current_count, limit, retry_after}.
const rateLimitScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local count = redis.call('INCR', key)
if count == 1 then
	redis.call('EXPIRE', key, window)
end

if count > limit then
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end
	return {0, count, limit, ttl}
end

return {1, count, limit, 0}
`

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Result contains the result of a rate limit check
type Result struct {
	Allowed           bool  // Whether the request is allowed
	CurrentCount      int64 // Current count in the window
	Limit             int64 // The limit that was checked
	RetryAfterSeconds int64 // Seconds until the limit resets (0 if allowed)
}

// RateLimiter provides rate limiting using Redis + Lua
type RateLimiter struct {
	redis  *redis.Client
	script *redis.Script
	logger Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redisClient *redis.Client, logger Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		logger: logger,
	}
}

// CheckGlobalLimit checks the service-wide limit on enqueued work
func (r *RateLimiter) CheckGlobalLimit(ctx context.Context, limit int64) (*Result, error) {
	return r.checkLimit(ctx, "rate_limit:global", limit, 60)
}

// CheckClientLimit checks the per-client limit, keyed by remote address
func (r *RateLimiter) CheckClientLimit(ctx context.Context, client string, limit int64, windowSec int) (*Result, error) {
	key := fmt.Sprintf("rate_limit:client:%s", client)
	return r.checkLimit(ctx, key, limit, windowSec)
}

// checkLimit executes the rate limit Lua script atomically
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int64, windowSec int) (*Result, error) {
	result, err := r.script.Run(ctx, r.redis, []string{key}, limit, windowSec).Result()
	if err != nil {
		r.logger.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	// Parse result array: {allowed, current_count, limit, retry_after}
	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 4 {
		return nil, fmt.Errorf("unexpected script result format")
	}

	res := &Result{
		Allowed:           resultArray[0].(int64) == 1,
		CurrentCount:      resultArray[1].(int64),
		Limit:             resultArray[2].(int64),
		RetryAfterSeconds: resultArray[3].(int64),
	}

	if !res.Allowed {
		r.logger.Warn("rate limit exceeded",
			"key", key,
			"current", res.CurrentCount,
			"limit", limit,
			"retry_after", res.RetryAfterSeconds)
	}

	return res, nil
}

// GetCurrentCount returns current count without incrementing (for monitoring)
func (r *RateLimiter) GetCurrentCount(ctx context.Context, key string) (int64, error) {
	count, err := r.redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

// ResetLimit clears a rate limit counter (for testing/admin)
func (r *RateLimiter) ResetLimit(ctx context.Context, key string) error {
	return r.redis.Del(ctx, key).Err()
}
