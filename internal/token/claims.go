package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the display-only claims of a session token
type Claims struct {
	Subject string
	Expires time.Time
}

// Inspect reads the claims of a JWT session token without verifying its signature.
// The result must never be used for authorization decisions; the backend remains the only authority.
func Inspect(raw string) (*Claims, error) {
	registered := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, registered); err != nil {
		return nil, err
	}
	claims := &Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.Expires = registered.ExpiresAt.Time
	}
	return claims, nil
}
