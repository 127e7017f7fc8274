package sessions

import (
	"time"

	"github.com/jrsteele09/go-mvp-voting/users"
	"golang.org/x/oauth2"
)

// Session is the client-held proof of authentication for one login.
// A Session is replaced as a whole; fields are never updated piecemeal
// outside the auth controller.
type Session struct {
	ID                 string         `json:"id"`                 // Unique session identifier (UUID), local only
	Token              *oauth2.Token  `json:"token"`              // Access token, optional refresh token, expiry
	IssuedAt           time.Time      `json:"issuedAt"`           // When the access token was received
	Identity           users.Identity `json:"identity"`           // The authenticated user or admin
	InactivityDeadline time.Time      `json:"inactivityDeadline"` // Local logout time absent further activity

	// Generation identifies the login that produced this session. Timer
	// callbacks carry the generation they were scheduled for.
	Generation uint64 `json:"-"`
}

func (s *Session) AccessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

func (s *Session) RefreshToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.RefreshToken
}

func (s *Session) ExpiresAt() time.Time {
	if s == nil || s.Token == nil {
		return time.Time{}
	}
	return s.Token.Expiry
}

// IsAuthenticated holds only while IssuedAt <= now < ExpiresAt.
func (s *Session) IsAuthenticated(now time.Time) bool {
	if s.AccessToken() == "" {
		return false
	}
	expiresAt := s.ExpiresAt()
	if expiresAt.IsZero() || s.IssuedAt.IsZero() {
		return false
	}
	return !now.Before(s.IssuedAt) && now.Before(expiresAt)
}

// NeedsRefresh reports whether the access token is within threshold of expiry.
func (s *Session) NeedsRefresh(now time.Time, threshold time.Duration) bool {
	expiresAt := s.ExpiresAt()
	if expiresAt.IsZero() {
		return false
	}
	return expiresAt.Sub(now) <= threshold
}

// InactivityExpired reports whether the inactivity deadline has passed.
// A session without a deadline is treated as expired.
func (s *Session) InactivityExpired(now time.Time) bool {
	if s == nil || s.InactivityDeadline.IsZero() {
		return true
	}
	return now.After(s.InactivityDeadline)
}

// Extend moves the inactivity deadline to now+window unless that would move it backwards.
func (s *Session) Extend(now time.Time, window time.Duration) bool {
	candidate := now.Add(window)
	if !candidate.After(s.InactivityDeadline) {
		return false
	}
	s.InactivityDeadline = candidate
	return true
}

// Clone returns a deep copy safe to hand out to other goroutines.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Token != nil {
		tok := *s.Token
		c.Token = &tok
	}
	if s.Identity.User != nil {
		u := *s.Identity.User
		c.Identity.User = &u
	}
	if s.Identity.Admin != nil {
		a := *s.Identity.Admin
		c.Identity.Admin = &a
	}
	return &c
}
