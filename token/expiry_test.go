package token_test

import (
	"encoding/json"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/token"
	"github.com/jrsteele09/go-mvp-voting/token/tokentest"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	want := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	t.Run("epoch milliseconds", func(t *testing.T) {
		var ts token.Timestamp
		require.NoError(t, json.Unmarshal([]byte("1760529600000"), &ts))
		require.True(t, ts.Equal(time.UnixMilli(1760529600000)))
	})

	t.Run("epoch seconds", func(t *testing.T) {
		var ts token.Timestamp
		require.NoError(t, json.Unmarshal([]byte("1760529600"), &ts))
		require.True(t, ts.Equal(time.Unix(1760529600, 0)))
	})

	t.Run("rfc3339 string", func(t *testing.T) {
		var ts token.Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"2026-10-15T12:00:00Z"`), &ts))
		require.True(t, ts.Equal(want))
	})

	t.Run("null", func(t *testing.T) {
		var ts token.Timestamp
		require.NoError(t, json.Unmarshal([]byte("null"), &ts))
		require.True(t, ts.IsZero())
	})

	t.Run("garbage", func(t *testing.T) {
		var ts token.Timestamp
		require.Error(t, json.Unmarshal([]byte(`"tomorrow"`), &ts))
	})
}

func TestResolveExpiry(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	jwtExpiry := now.Add(time.Hour)
	accessToken := tokentest.AccessToken("user-1", now, jwtExpiry)

	t.Run("server value wins", func(t *testing.T) {
		server := token.Timestamp{Time: now.Add(10 * time.Minute)}
		exp, err := token.ResolveExpiry(server, accessToken)
		require.NoError(t, err)
		require.True(t, exp.Equal(server.Time))
	})

	t.Run("falls back to exp claim", func(t *testing.T) {
		exp, err := token.ResolveExpiry(token.Timestamp{}, accessToken)
		require.NoError(t, err)
		require.Equal(t, jwtExpiry.Unix(), exp.Unix())
	})

	t.Run("opaque token without server value", func(t *testing.T) {
		_, err := token.ResolveExpiry(token.Timestamp{}, "opaque-token")
		require.ErrorIs(t, err, apperrors.ErrMissingExpiry)
	})
}
