package config

import "time"

// RateLimitConfig tunes the Redis token bucket protecting the public API.
// The booking API is anonymous, so buckets are keyed per client IP and
// route rather than per user.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* environment variables.  The
// defaults allow a burst of 30 requests refilling one per second, which is
// generous for a booking form but stops availability-polling loops.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        boolOr("RATE_LIMIT_ENABLED", true),
        Capacity:       intOr("RATE_LIMIT_CAPACITY", 30),
        RefillTokens:   intOr("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: durOr("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            durOr("RATE_LIMIT_TTL", 10*time.Minute),
        Prefix:         envOr("RATE_LIMIT_PREFIX", "hyrservice:rl"),
        Debug:          boolOr("RATE_LIMIT_DEBUG", false),
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    // Idle buckets must outlive several refill intervals or a full bucket
    // would be handed out again right after expiry.
    if min := 5 * cfg.RefillInterval; cfg.TTL < min {
        cfg.TTL = min
    }
    return cfg
}
