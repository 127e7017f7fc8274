// Package tokentest mints signed JWTs for tests that need realistic access
// and identity-provider tokens.
package tokentest

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// KeyPair represents a public/private key pair for signing tokens
type KeyPair struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
	PublicKey  crypto.PublicKey
}

// GenerateRSAKeyPair generates a new RSA key pair for RS256 signing
func GenerateRSAKeyPair(keyID string) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

func (kp *KeyPair) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kp.KeyID

	signed, err := token.SignedString(kp.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IDToken creates an OpenID Connect ID token as an identity provider would.
func (kp *KeyPair) IDToken(issuer, audience, subject, email, name string, now time.Time) (string, error) {
	return kp.Sign(jwt.MapClaims{
		"iss":            issuer,
		"sub":            subject,
		"aud":            audience,
		"email":          email,
		"email_verified": true,
		"name":           name,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"jti":            uuid.New().String(),
	})
}

// AccessToken returns an HMAC-signed access token for subject that expires at exp.
// The client never verifies access tokens, so the key is irrelevant.
func AccessToken(subject string, iat, exp time.Time) string {
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": iat.Unix(),
		"exp": exp.Unix(),
		"jti": uuid.New().String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return signed
}
