package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-rentals/internal/config"
)

// bucketScript takes one token from the bucket at KEYS[1], refilling it
// first for every whole interval that passed.  It answers
// {allowed, tokens left, ms until the next refill}.
//
// ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_ms
var bucketScript = redis.NewScript(`
local now, cap, step, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local st = redis.call('HMGET', KEYS[1], 't', 'at')
local tokens, at = tonumber(st[1]), tonumber(st[2])
if tokens == nil or at == nil then
	tokens, at = cap, now
end
local n = math.floor(math.max(0, now - at) / every)
if n > 0 then
	tokens = math.min(cap, tokens + n * step)
	at = at + n * every
end
local ok, wait = 0, 0
if tokens > 0 then
	ok, tokens = 1, tokens - 1
else
	wait = math.max(0, every - (now - at))
end
redis.call('HSET', KEYS[1], 't', tokens, 'at', at)
redis.call('PEXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

// take is one bucket decision.
type take struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

func parseTake(v any) (take, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return take{}, false
	}
	nums := make([]int64, 3)
	for i, x := range arr {
		n, ok := x.(int64)
		if !ok {
			return take{}, false
		}
		nums[i] = n
	}
	return take{allowed: nums[0] == 1, remaining: nums[1], wait: time.Duration(nums[2]) * time.Millisecond}, true
}

// NewTokenBucket throttles the rental mutations with a token bucket kept
// in Redis, shared by every instance of the service.  It is a no-op when
// disabled or without Redis, and a Redis failure lets the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			res, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(), cfg.TTL.Milliseconds(),
			).Result()
			if err != nil {
				c.Logger().Warnf("ratelimit: %s: %v", key, err)
				return next(c)
			}
			t, ok := parseTake(res)
			if !ok {
				c.Logger().Warnf("ratelimit: %s: unexpected reply %#v", key, res)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(t.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if t.allowed {
				return next(c)
			}

			secs := int((t.wait + time.Second - 1) / time.Second) // round up
			h.Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests", "retry_after": secs})
		}
	}
}

// buildRateKey names the bucket for this request.  The default keys by
// client address and route.  Session ids are picked by the client, so
// strategies that include one still share a single bucket per address
// among requests that arrive without a session.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	sid := CurrentSession(c)
	if sessionMinted(c) {
		sid = "none@" + ip
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "session":
		parts = append(parts, "session", sid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_session":
		parts = append(parts, "ip", ip, "session", sid)
	case "session_route":
		parts = append(parts, "session", sid, "route", route)
	case "ip_session_route":
		parts = append(parts, "ip", ip, "session", sid, "route", route)
	default: // "ip_route"
		parts = append(parts, "ip", ip, "route", route)
	}
	return strings.Join(parts, ":")
}
