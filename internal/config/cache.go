package config

import (
    "strings"
    "time"
)

// CacheConfig drives the Redis response cache in front of the read
// endpoints.  Every list the API returns depends on who asks, so the key
// always starts with the caller identity; KeyStrategy picks what else of
// the request goes into it.  Cached lists may be up to TTL stale, which is
// why the cache is off unless CACHE_ENABLED is set.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // upper-case HTTP methods eligible for caching
    TTL          time.Duration
    KeyStrategy  string // route | method_route | route_query | method_route_query
    Prefix       string
    MaxBodyBytes int // responses larger than this are not stored; 0 means no limit
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    methods := map[string]bool{}
    for _, m := range envList("CACHE_METHODS", "GET", strings.ToUpper) {
        methods[m] = true
    }
    ttl := envDur("CACHE_TTL", 5*time.Second)
    if ttl <= 0 {
        ttl = 5 * time.Second
    }
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", false),
        Methods:      methods,
        TTL:          ttl,
        KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "route_query")),
        Prefix:       envStr("CACHE_PREFIX", "outings:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
