package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
)

// epochSecondsCutoff separates epoch seconds from epoch milliseconds (year 5138 in seconds).
const epochSecondsCutoff = 1e11

// Timestamp is an instant sent by the backend either as epoch milliseconds
// (the documented form), epoch seconds, or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			t.Time = fromEpoch(n)
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("[Timestamp.UnmarshalJSON] %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("[Timestamp.UnmarshalJSON] %s: %w", data, err)
	}
	t.Time = fromEpoch(n)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

func fromEpoch(n float64) time.Time {
	if n < epochSecondsCutoff {
		return time.Unix(int64(n), 0)
	}
	return time.UnixMilli(int64(n))
}

// ResolveExpiry picks the authoritative expiry of an access token: the
// server-supplied value when present, otherwise the token's own exp claim.
// There is no default lifetime; an unknown expiry is an error.
func ResolveExpiry(serverExpiry Timestamp, accessToken string) (time.Time, error) {
	if !serverExpiry.IsZero() {
		return serverExpiry.Time, nil
	}
	claims, err := Inspect(accessToken)
	if err == nil && !claims.ExpiresAt.IsZero() {
		return claims.ExpiresAt, nil
	}
	return time.Time{}, apperrors.ErrMissingExpiry
}
