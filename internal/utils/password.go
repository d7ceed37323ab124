package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes the admin password with bcrypt at the given cost.
// A cost of zero or less falls back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
    if cost <= 0 {
        cost = bcrypt.DefaultCost
    }
    b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
func VerifyPassword(hash, plain string) bool {
    return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
