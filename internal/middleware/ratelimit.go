package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/pmicianjur/pelantikan-api/internal/config"
)

// rateLimitScript implements a token bucket in Redis. Keeping the
// read-modify-write in a single Lua script makes the bucket atomic
// across concurrent requests and across instances.
//
// KEYS[1] = bucket key
// ARGV    = capacity, refill tokens, refill interval ms, now ms, ttl ms
var rateLimitScript = redis.NewScript(`
local key      = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill   = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now      = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local data = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(data[1])
local ts     = tonumber(data[2])
if tokens == nil then
  tokens = capacity
  ts     = now
end

local elapsed = now - ts
if elapsed > 0 then
  local refills = math.floor(elapsed / interval)
  if refills > 0 then
    tokens = math.min(capacity, tokens + refills * refill)
    ts = ts + refills * interval
  end
end

local allowed = 0
if tokens > 0 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HMSET', key, 'tokens', tokens, 'ts', ts)
redis.call('PEXPIRE', key, ttl)
return {allowed, tokens}
`)

// RateLimit returns an Echo middleware enforcing a per-client token
// bucket on the public API. Buckets are keyed by client IP and route.
// With rate limiting disabled or Redis unavailable the middleware is a
// passthrough: availability wins over throttling for this service.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.Prefix + ":" + c.RealIP() + ":" + c.Path()
			now := time.Now().UnixMilli()
			res, err := rateLimitScript.Run(c.Request().Context(), rdb, []string{key},
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				now,
				cfg.TTL.Milliseconds(),
			).Int64Slice()
			if err != nil || len(res) < 2 {
				// Redis hiccup: let the request through.
				return next(c)
			}
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if res[0] != 1 {
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
