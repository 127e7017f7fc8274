package users

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RoleType discriminates the two identities the backend issues sessions for.
type RoleType string

const (
	RoleUser  RoleType = "user"
	RoleAdmin RoleType = "admin"
)

func (r RoleType) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           string    `json:"_id,omitempty"`             // Backend identifier
	Email        string    `json:"email,omitempty"`           // User's email address
	Name         string    `json:"nombre,omitempty"`          // Display name
	RegisteredAt time.Time `json:"fechaRegistro,omitempty"`   // Date and time when the user registered
	LastVoteAt   string    `json:"ultimoVoto,omitempty"`      // Match id or date of the last vote, as sent by the backend
	VotesCast    int       `json:"votosRealizados,omitempty"` // Number of votes the user has cast
	Active       bool      `json:"activo,omitempty"`          // Active, deactivated users cannot log in
}

type Admin struct {
	ID           string    `json:"_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"nombre,omitempty"`
	RegisteredAt time.Time `json:"fechaRegistro,omitempty"`
	Active       bool      `json:"activo,omitempty"`
}

// Identity is the authenticated principal. Exactly one of User or Admin is set,
// matching Role.
type Identity struct {
	Role  RoleType `json:"role"`
	User  *User    `json:"user,omitempty"`
	Admin *Admin   `json:"admin,omitempty"`
}

// NewIdentity builds an Identity from the backend's userType flag and records.
func NewIdentity(userType string, user *User, admin *Admin) (Identity, error) {
	switch RoleType(strings.ToLower(userType)) {
	case RoleAdmin:
		if admin == nil {
			return Identity{}, fmt.Errorf("userType admin without admin record")
		}
		return Identity{Role: RoleAdmin, Admin: admin}, nil
	case RoleUser:
		if user == nil {
			return Identity{}, fmt.Errorf("userType user without user record")
		}
		return Identity{Role: RoleUser, User: user}, nil
	}
	return Identity{}, fmt.Errorf("unknown userType %q", userType)
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin && i.Admin != nil
}

func (i Identity) ID() string {
	switch {
	case i.Admin != nil:
		return i.Admin.ID
	case i.User != nil:
		return i.User.ID
	}
	return ""
}

func (i Identity) Email() string {
	switch {
	case i.Admin != nil:
		return i.Admin.Email
	case i.User != nil:
		return i.User.Email
	}
	return ""
}

func (i Identity) Name() string {
	switch {
	case i.Admin != nil:
		return i.Admin.Name
	case i.User != nil:
		return i.User.Name
	}
	return ""
}

// UnmarshalJSON tolerates backends that send "id" instead of "_id".
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var raw struct {
		alias
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.alias)
	if u.ID == "" {
		u.ID = raw.AltID
	}
	return nil
}

func (a *Admin) UnmarshalJSON(data []byte) error {
	type alias Admin
	var raw struct {
		alias
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Admin(raw.alias)
	if a.ID == "" {
		a.ID = raw.AltID
	}
	return nil
}
