package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses duration values such as cache TTLs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations.
type Config struct {
    Env    string // application environment (e.g. "dev", "prod")
    Port   string // HTTP port to listen on
    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    AdminToken   string // static bearer token for admin endpoints
    AdminUser    string // admin login username
    AdminPassHash string // bcrypt hash of the admin login password
    JWTSecret    string // secret used to sign admin session JWTs
    SessionTTLMin int   // admin session token time-to-live in minutes

    SwishPayee       string // Swish merchant number shown in QR payloads
    SwishCallbackURL string // public URL Swish posts payment callbacks to
    SwishMock        bool   // run Swish in mock mode (no certificates)

    TwilioAccountSID string // Twilio account for outbound SMS (optional)
    TwilioAuthToken  string // Twilio auth token (optional)
    TwilioFromNumber string // SMS sender number (optional)
    AdminSMSNumber   string // admin notification number, Swedish mobile

    NotifyWebhookURL    string // receipt webhook endpoint (optional)
    NotifyWebhookSecret string // shared secret echoed in webhook payloads
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:    must("APP_ENV"),      // environment (dev/test/prod)
        Port:   must("APP_PORT"),     // port to bind the HTTP server
        DBUser: must("DB_USER"),      // database user
        DBPass: os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost: must("DB_HOST"),      // database host
        DBPort: must("DB_PORT"),      // database port
        DBName: must("DB_NAME"),      // database name

        AdminToken:    must("ADMIN_TOKEN"),             // static admin API token
        AdminUser:     envOr("ADMIN_USER", "admin"),    // admin login name
        AdminPassHash: os.Getenv("ADMIN_PASS_HASH"),    // empty disables password login
        JWTSecret:     must("JWT_SECRET"),              // secret for admin session JWTs
        SessionTTLMin: intOr("SESSION_TTL_MIN", 120),   // admin session lifetime

        SwishPayee:       envOr("SWISH_PAYEE", "1234945580"),
        SwishCallbackURL: os.Getenv("SWISH_CALLBACK_URL"),
        SwishMock:        boolOr("SWISH_MOCK", true), // stays true until certificates exist

        TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
        TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
        TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
        AdminSMSNumber:   envOr("ADMIN_SMS_NUMBER", "0709663485"),

        NotifyWebhookURL:    os.Getenv("NOTIFY_WEBHOOK_URL"),
        NotifyWebhookSecret: os.Getenv("NOTIFY_WEBHOOK_SECRET"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// envOr returns the environment value or a default when unset or empty.
func envOr(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// intOr parses an optional integer environment variable.  Invalid values
// are fatal; unset values fall back to the default.
func intOr(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// durOr parses an optional duration environment variable ("30s", "5m").
func durOr(key string, def time.Duration) time.Duration {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    d, err := time.ParseDuration(s)
    if err != nil {
        log.Fatalf("invalid duration for %s: %q", key, s)
    }
    return d
}

// boolOr parses an optional boolean environment variable.
func boolOr(key string, def bool) bool {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    b, err := strconv.ParseBool(s)
    if err != nil {
        log.Fatalf("invalid bool for %s: %q", key, s)
    }
    return b
}
