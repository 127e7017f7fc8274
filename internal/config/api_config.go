package config

import (
	"strings"
	"time"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetDefaultHeaders() map[string]string
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the backend base URL without a trailing slash (e.g. "https://api.example.com/api")
func (API) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv("API_BASE_URL", "http://localhost:3000/api"), "/")
}

func (API) GetRequestTimeout() time.Duration {
	return GetDuration("API_TIMEOUT", 15*time.Second)
}

func (API) GetDefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}
