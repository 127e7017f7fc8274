package auth

import (
	"fmt"
	"net/mail"
	"strings"

	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
)

// Credentials are the email/password pair submitted on login.
type Credentials struct {
	Email      string
	Password   string
	RememberMe bool
}

// Profile is the data submitted on registration.
type Profile struct {
	Email    string
	Name     string
	Password string
}

// Validate rejects credentials before any server call is made.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: email is required", apperrors.ErrInvalidCredentials)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", apperrors.ErrInvalidCredentials)
	}
	return nil
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", apperrors.ErrInvalidCredentials)
	}
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("%w: email is required", apperrors.ErrInvalidCredentials)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(p.Email)); err != nil {
		return fmt.Errorf("%w: email %q is not valid", apperrors.ErrInvalidCredentials, p.Email)
	}
	if p.Password == "" {
		return fmt.Errorf("%w: password is required", apperrors.ErrInvalidCredentials)
	}
	return nil
}
