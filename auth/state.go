package auth

import (
	"time"

	"github.com/jrsteele09/go-mvp-voting/users"
)

// State is the auth controller's lifecycle state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
)

// Busy reports whether a login or refresh is in flight.
func (s State) Busy() bool {
	return s == StateAuthenticating || s == StateRefreshing
}

// Status is a point-in-time snapshot published to observers.
type Status struct {
	State              State
	Identity           *users.Identity
	IsAuthenticated    bool
	IsAdmin            bool
	ExpiresAt          time.Time
	InactivityDeadline time.Time
}
