package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/outing-coordinator/internal/config"
    "github.com/iliyamo/outing-coordinator/internal/logging"
)

const cacheWriteTimeout = time.Second

// cachedResponse is what gets stored in Redis for one key.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// bodyRecorder tees the response body while it is written to the client.
// Once more than limit bytes have been seen it stops buffering and marks
// the response as too large to store.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// cacheKeyFrom builds the Redis key for a request.  The caller identity
// always leads: outing feeds and request lists differ per user and must
// never be served across users.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    parts := []string{"user", userID(c)}
    switch cfg.KeyStrategy {
    case "route":
        parts = append(parts, "route", c.Path())
    case "method_route":
        parts = append(parts, "method", r.Method, "route", c.Path())
    case "method_route_query":
        parts = append(parts, "method", r.Method, "route", c.Path(), "q", r.URL.RawQuery)
    default: // route_query
        parts = append(parts, "route", c.Path(), "q", r.URL.RawQuery)
    }
    // hashed so arbitrary ids and query strings cannot break the key format
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache serves repeated reads from Redis for cfg.TTL.  Only 200
// responses are stored.  It must run after RequireIdentity; requests with
// no resolved identity are never cached.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] || userID(c) == "anon" {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if hit, ok := loadCached(ctx, rdb, key); ok {
                h := c.Response().Header()
                for k, vals := range storableHeader(hit.Header) {
                    h[k] = vals
                }
                h.Set("X-Cache", "HIT")
                return c.Blob(hit.Status, h.Get(echo.HeaderContentType), hit.Body)
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }

            hdr := storableHeader(c.Response().Header())
            payload, err := json.Marshal(cachedResponse{Status: rec.status, Header: hdr, Body: rec.buf.Bytes()})
            if err != nil {
                return nil
            }
            wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
            defer cancel()
            if err := rdb.Set(wctx, key, payload, cfg.TTL).Err(); err != nil {
                logging.Ctx(ctx).Warn().Err(err).Msg("response not cached")
            }
            return nil
        }
    }
}

// perRequestHeaders describe the request that produced a response, not the
// response itself, and are never stored or replayed.
var perRequestHeaders = []string{
    echo.HeaderContentLength,
    echo.HeaderXRequestID,
    "X-Cache",
    "X-RateLimit-Limit",
    "X-RateLimit-Remaining",
    echo.HeaderRetryAfter,
}

// storableHeader returns a copy of h without perRequestHeaders.
func storableHeader(h http.Header) http.Header {
    out := h.Clone()
    if out == nil {
        return http.Header{}
    }
    for _, k := range perRequestHeaders {
        out.Del(k)
    }
    return out
}

func loadCached(ctx context.Context, rdb *redis.Client, key string) (cachedResponse, bool) {
    bs, err := rdb.Get(ctx, key).Bytes()
    if err != nil {
        return cachedResponse{}, false
    }
    var out cachedResponse
    if err := json.Unmarshal(bs, &out); err != nil || out.Status == 0 {
        return cachedResponse{}, false
    }
    return out, true
}
