package identity_test

import (
	"context"
	"crypto"
	"testing"
	"time"

	"github.com/jrsteele09/go-mvp-voting/identity"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/token/tokentest"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://securetoken.google.com/club-mvp"
	testAudience = "club-mvp"
)

func TestOIDCVerifier_Verify(t *testing.T) {
	now := time.Now()
	keys, err := tokentest.GenerateRSAKeyPair("kid-1")
	require.NoError(t, err)
	verifier := identity.NewStaticVerifier(testIssuer, testAudience, []crypto.PublicKey{keys.PublicKey}, func() time.Time { return now })
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		raw, err := keys.IDToken(testIssuer, testAudience, "google-123", "a@b.com", "Ana", now)
		require.NoError(t, err)

		claims, err := verifier.Verify(ctx, raw)
		require.NoError(t, err)
		require.Equal(t, "google-123", claims.Subject)
		require.Equal(t, "a@b.com", claims.Email)
		require.Equal(t, "Ana", claims.Name)
		require.True(t, claims.EmailVerified)
	})

	t.Run("wrong audience", func(t *testing.T) {
		raw, err := keys.IDToken(testIssuer, "another-project", "google-123", "a@b.com", "Ana", now)
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, raw)
		require.ErrorIs(t, err, apperrors.ErrInvalidIdentityToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw, err := keys.IDToken("https://evil.example.com", testAudience, "google-123", "a@b.com", "Ana", now)
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, raw)
		require.ErrorIs(t, err, apperrors.ErrInvalidIdentityToken)
	})

	t.Run("signed by unknown key", func(t *testing.T) {
		other, err := tokentest.GenerateRSAKeyPair("kid-2")
		require.NoError(t, err)
		raw, err := other.IDToken(testIssuer, testAudience, "google-123", "a@b.com", "Ana", now)
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, raw)
		require.ErrorIs(t, err, apperrors.ErrInvalidIdentityToken)
	})

	t.Run("expired", func(t *testing.T) {
		raw, err := keys.IDToken(testIssuer, testAudience, "google-123", "a@b.com", "Ana", now.Add(-2*time.Hour))
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, raw)
		require.ErrorIs(t, err, apperrors.ErrInvalidIdentityToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := verifier.Verify(ctx, " ")
		require.ErrorIs(t, err, apperrors.ErrInvalidIdentityToken)
	})
}
