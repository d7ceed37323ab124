package middleware // middleware provides shared request processing for handlers

import (
    "crypto/subtle"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/dalsjofors/hyrservice/internal/utils"
)

// AdminAuth returns a middleware that guards admin endpoints.  Two bearer
// credentials are accepted: the static ADMIN_TOKEN (used by scripts and the
// dev payment endpoint) and a signed session JWT from the admin login.  On
// success the admin identity and role are stored in the context for
// downstream middleware.
func AdminAuth(staticToken, jwtSecret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            token, ok := strings.CutPrefix(auth, "Bearer ")
            if !ok || token == "" {
                return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
            }
            if staticToken != "" &&
                subtle.ConstantTimeCompare([]byte(token), []byte(staticToken)) == 1 {
                c.Set("user_id", "admin-token")
                c.Set("role", "ADMIN")
                return next(c)
            }
            sub, err := utils.ParseSessionToken(jwtSecret, token)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
            }
            c.Set("user_id", sub)
            c.Set("role", "ADMIN")
            return next(c)
        }
    }
}
