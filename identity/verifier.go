// Package identity verifies ID tokens issued by the external sign-in provider
// before they are exchanged for a backend session.
package identity

import (
	"context"
	"crypto"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
)

// Claims are the identity fields the voting backend needs from the provider.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Claims, error)
}

// OIDCVerifier checks signature, issuer, audience and expiry with go-oidc.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier discovers the provider's keys from issuer's well-known configuration.
func NewOIDCVerifier(ctx context.Context, issuer, audience string) (*OIDCVerifier, error) {
	if audience == "" {
		return nil, fmt.Errorf("[identity.NewOIDCVerifier] audience is required")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[identity.NewOIDCVerifier] provider discovery: %w", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: audience}),
	}, nil
}

// NewStaticVerifier verifies against a fixed set of public keys, without discovery.
func NewStaticVerifier(issuer, audience string, keys []crypto.PublicKey, now func() time.Time) *OIDCVerifier {
	if now == nil {
		now = time.Now
	}
	keySet := &oidc.StaticKeySet{PublicKeys: keys}
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: audience, Now: now}),
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawIDToken string) (*Claims, error) {
	if strings.TrimSpace(rawIDToken) == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidIdentityToken, "[OIDCVerifier.Verify] empty token")
	}

	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[OIDCVerifier.Verify] %w: %v", apperrors.ErrInvalidIdentityToken, err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("[OIDCVerifier.Verify] %w: %v", apperrors.ErrInvalidIdentityToken, err)
	}
	if claims.Email == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidIdentityToken, "[OIDCVerifier.Verify] email not present in id token")
	}
	return &claims, nil
}
