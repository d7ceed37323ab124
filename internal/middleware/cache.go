package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/dalsjofors/hyrservice/internal/config"
)

// cachedResponse is the stored form of one cacheable reply.  Price and
// availability responses are always JSON, so only the status code,
// content type and body need to survive a round trip through Redis.
type cachedResponse struct {
    Status      int             `json:"status"`
    ContentType string          `json:"contentType"`
    Body        json.RawMessage `json:"body"`
}

// bodyRecorder duplicates the response body into a buffer while streaming
// it to the client, stopping the copy once limit bytes are exceeded.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    overflow bool
    limit    int
}

func (br *bodyRecorder) WriteHeader(code int) {
    br.status = code
    br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
    if !br.overflow {
        if br.buf.Len()+len(b) > br.limit {
            br.overflow = true
            br.buf.Reset()
        } else {
            br.buf.Write(b)
        }
    }
    return br.ResponseWriter.Write(b)
}

// NewRedisCache caches successful GET responses keyed by route and query
// string.  Every trailer type, rental type and date combination gets its
// own entry, so a hit never mixes up two lookups.  With Redis down or the
// cache disabled the middleware is a no-op.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            r := c.Request()
            if r.Method != http.MethodGet {
                return next(c)
            }
            sum := sha1.Sum([]byte(c.Path() + "?" + r.URL.RawQuery))
            key := fmt.Sprintf("%s:%x", cfg.Prefix, sum)

            if raw, err := rdb.Get(r.Context(), key).Bytes(); err == nil {
                var cached cachedResponse
                if json.Unmarshal(raw, &cached) == nil && cached.Status != 0 {
                    c.Response().Header().Set(echo.HeaderContentType, cached.ContentType)
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(cached.Status, cached.ContentType, cached.Body)
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if rec.status == http.StatusOK && !rec.overflow && rec.buf.Len() > 0 {
                entry := cachedResponse{
                    Status:      rec.status,
                    ContentType: c.Response().Header().Get(echo.HeaderContentType),
                    Body:        json.RawMessage(rec.buf.Bytes()),
                }
                if raw, err := json.Marshal(entry); err == nil {
                    // The request context may already be done once the
                    // response is written.
                    _ = rdb.SetEx(context.Background(), key, raw, cfg.TTL).Err()
                }
            }
            return nil
        }
    }
}
