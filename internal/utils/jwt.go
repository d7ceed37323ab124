package utils // package utils provides helper functions for token creation and hashing

import (
    "fmt"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionToken represents a signed HS256 JWT for an admin session along
// with its expiry.  The Token field is sent as a bearer token on admin
// endpoints.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for the admin user.  The
// JWT includes standard claims: subject (sub), role, expiration (exp) and
// issued at (iat).
func NewSessionToken(secret, username string, ttlMin int) (SessionToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  username,
        "role": "ADMIN",
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken validates a bearer token and returns the subject.  Only
// HS256 tokens signed with the configured secret are accepted.
func ParseSessionToken(secret, token string) (string, error) {
    parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
        }
        return []byte(secret), nil
    })
    if err != nil {
        return "", err
    }
    claims, ok := parsed.Claims.(jwt.MapClaims)
    if !ok || !parsed.Valid {
        return "", fmt.Errorf("invalid session token")
    }
    sub, _ := claims["sub"].(string)
    if sub == "" {
        return "", fmt.Errorf("session token missing subject")
    }
    return sub, nil
}
