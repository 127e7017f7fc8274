package config

import "time"

type SessionConfig interface {
	GetRefreshThreshold() time.Duration
	GetInactivityWindow() time.Duration
	GetClockInterval() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshThreshold is how long before expiry the access token is renewed.
func (Session) GetRefreshThreshold() time.Duration {
	return GetDuration("SESSION_REFRESH_THRESHOLD", 5*time.Minute)
}

func (Session) GetInactivityWindow() time.Duration {
	return GetDuration("SESSION_INACTIVITY_WINDOW", 30*time.Minute)
}

func (Session) GetClockInterval() time.Duration {
	return GetDuration("SESSION_CLOCK_INTERVAL", time.Minute)
}
