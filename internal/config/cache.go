package config

import "time"

// CacheConfig tunes the Redis response cache in front of the price and
// availability endpoints.  Only GET responses are cached; the key is the
// route plus its query string, so each trailer/date combination caches
// independently.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* environment variables.  The 15 second
// default TTL keeps availability near-real-time while absorbing bursts of
// identical lookups from the booking calendar widget.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      boolOr("CACHE_ENABLED", true),
        TTL:          durOr("CACHE_TTL", 15*time.Second),
        Prefix:       envOr("CACHE_PREFIX", "hyrservice:cache"),
        MaxBodyBytes: intOr("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
