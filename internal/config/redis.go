package config

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis using REDIS_ADDR (or REDIS_HOST plus
// REDIS_PORT), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.  Redis only backs
// rate limiting and response caching here, so a failed connection returns
// nil and both middlewares degrade to pass-through rather than blocking
// startup.
func NewRedisClient() *redis.Client {
    addr := envOr("REDIS_ADDR", "")
    if host := envOr("REDIS_HOST", ""); host != "" {
        addr = host + ":" + envOr("REDIS_PORT", "6379")
    }
    if addr == "" {
        addr = "localhost:6379"
    }

    var tlsConf *tls.Config
    if boolOr("REDIS_TLS", false) {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }

    client := redis.NewClient(&redis.Options{
        Addr:      addr,
        Password:  envOr("REDIS_PASSWORD", ""),
        DB:        intOr("REDIS_DB", 0),
        TLSConfig: tlsConf,
    })

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}
