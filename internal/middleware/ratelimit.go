package middleware

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/outing-coordinator/internal/config"
    "github.com/iliyamo/outing-coordinator/internal/logging"
)

// tokenBucketScript refills and takes one token atomically.  State is a
// hash {tokens, last_refill_ms} per key.  Returns {allowed, remaining,
// retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1]) or capacity
local last = tonumber(state[2]) or now_ms

local steps = math.floor(math.max(0, now_ms - last) / interval_ms)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  last = last + steps * interval_ms
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry_ms}
`)

type bucketResult struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

type tokenBucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
    now func() time.Time
}

func (b *tokenBucket) take(ctx context.Context, key string) (bucketResult, error) {
    raw, err := tokenBucketScript.Run(ctx, b.rdb, []string{key},
        b.now().UnixMilli(),
        b.cfg.Capacity,
        b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(),
        int64(b.cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return bucketResult{}, err
    }
    if len(raw) != 3 {
        return bucketResult{}, fmt.Errorf("token bucket: unexpected reply %v", raw)
    }
    return bucketResult{
        allowed:   raw[0] == 1,
        remaining: raw[1],
        retry:     time.Duration(raw[2]) * time.Millisecond,
    }, nil
}

// NewTokenBucket limits each caller with a token bucket kept in Redis, so
// every instance shares the same budget.  It must run after
// RequireIdentity for the user based strategies to see the caller.  With
// the limiter disabled, no Redis client, or Redis failing, requests pass
// through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    b := &tokenBucket{cfg: cfg, rdb: rdb, now: time.Now}
    limit := strconv.Itoa(cfg.Capacity)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ctx := c.Request().Context()
            key := buildRateKey(cfg, c)
            res, err := b.take(ctx, key)
            if err != nil {
                logging.Ctx(ctx).Warn().Err(err).Str("rate_key", key).Msg("rate limiter unavailable")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
            if res.allowed {
                return next(c)
            }

            secs := int64((res.retry + time.Second - 1) / time.Second)
            h.Set("Retry-After", strconv.FormatInt(secs, 10))
            if cfg.Debug {
                logging.Ctx(ctx).Info().Str("rate_key", key).Dur("retry", res.retry).Msg("request throttled")
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
        }
    }
}

// buildRateKey joins the configured parts.  Unknown strategies fall back
// to ip_user_route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    values := map[string]string{
        "ip":    ip,
        "user":  userID(c),
        "route": c.Request().Method + " " + c.Path(),
    }

    strategy := strings.ToLower(cfg.KeyStrategy)
    switch strategy {
    case "ip", "user", "route", "ip_user", "ip_route", "user_route", "ip_user_route":
    default:
        strategy = "ip_user_route"
    }
    parts := []string{cfg.Prefix}
    for _, name := range strings.Split(strategy, "_") {
        parts = append(parts, name, values[name])
    }
    return strings.Join(parts, ":")
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
