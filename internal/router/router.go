package router // package router defines how HTTP routes are registered for the API

import (
    "database/sql"

    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/dalsjofors/hyrservice/internal/config"
    "github.com/dalsjofors/hyrservice/internal/handler"    // import the handlers that implement business logic
    "github.com/dalsjofors/hyrservice/internal/middleware" // import middleware for auth, rate limiting and caching
)

// Deps bundles everything route registration needs.  The Redis client may
// be nil, in which case rate limiting and response caching are disabled
// and handlers run unwrapped.
type Deps struct {
    DB      *sql.DB
    Redis   *redis.Client
    Booking *handler.BookingHandler
    Payment *handler.PaymentHandler
    Admin   *handler.AdminHandler

    AdminToken string
    JWTSecret  string
}

// Register wires all endpoints onto the provided Echo instance.  Public
// booking reads sit behind the Redis response cache, every /api route is
// rate limited, and the admin group requires a bearer credential.
func Register(e *echo.Echo, d Deps) {
    // Health stays outside the rate limiter so monitoring never gets a 429.
    e.GET("/api/health", handler.Health(d.DB))

    api := e.Group("/api")
    api.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis))

    // Price quotes are pure functions of the query string; availability
    // changes with every booking but tolerates a short cache window.
    cached := api.Group("")
    cached.Use(middleware.NewRedisCache(config.LoadCacheConfig(), d.Redis))
    cached.GET("/price", d.Booking.Price)
    cached.GET("/availability", d.Booking.Availability)

    api.POST("/hold", d.Booking.Hold)
    api.GET("/payment", d.Payment.Details)
    api.POST("/swish/callback", d.Payment.Callback)

    api.POST("/admin/login", d.Admin.Login)

    admin := api.Group("/admin")
    admin.Use(middleware.AdminAuth(d.AdminToken, d.JWTSecret))
    admin.Use(middleware.RequireRole("ADMIN"))
    admin.POST("/blocks", d.Admin.CreateBlock)
    admin.GET("/blocks", d.Admin.ListBlocks)
    admin.DELETE("/blocks/:id", d.Admin.DeleteBlock)
    admin.GET("/bookings", d.Admin.ListBookings)
    admin.POST("/expire-pending", d.Admin.ExpirePending)

    // The dev payment endpoint settles mock Swish payments and must never
    // be reachable without admin credentials.
    dev := api.Group("/dev")
    dev.Use(middleware.AdminAuth(d.AdminToken, d.JWTSecret))
    dev.Use(middleware.RequireRole("ADMIN"))
    dev.POST("/swish/mark", d.Payment.DevMark)
}
