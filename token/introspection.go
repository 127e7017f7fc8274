package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims the client reads from an access token.
// The client cannot verify the signature; these values are hints only and
// the backend re-validates the token on every request.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Inspect parses a JWT access token without verifying it.
func Inspect(rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Claims{}, errors.New("empty token")
	}

	var registered jwtlib.RegisteredClaims
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, &registered); err != nil {
		return Claims{}, err
	}

	claims := Claims{
		Subject: registered.Subject,
		ID:      registered.ID,
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}
