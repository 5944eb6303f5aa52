package config

import "time"

// RateLimitConfig configures the Redis token bucket in front of the API.
// A bucket holds Capacity tokens and regains RefillTokens every
// RefillInterval.  KeyStrategy names the parts the bucket key is built
// from (ip, user, route, or a combination such as ip_user_route).
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after this
    KeyStrategy    string
    Prefix         string
    Debug          bool // log every throttled request
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and clamps them to
// usable minimums.  The bucket TTL is never shorter than five refill
// intervals.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       max(envInt("RATE_LIMIT_CAPACITY", 60), 1),
        RefillTokens:   max(envInt("RATE_LIMIT_REFILL_TOKENS", 1), 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "outings:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    cfg.TTL = max(cfg.TTL, 5*cfg.RefillInterval)
    return cfg
}
