// Package admin wraps the backend's admin-only account endpoints.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/jrsteele09/go-mvp-voting/backend"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/users"
)

const (
	RouteUsers          = "/users/"
	RouteChangePassword = "/admin/change-password"
	MinPasswordLength   = 6
)

type Client struct {
	doer backend.Doer
}

func NewClient(doer backend.Doer) *Client {
	return &Client{doer: doer}
}

func (c *Client) ListUsers(ctx context.Context) ([]users.User, error) {
	var out []users.User
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: RouteUsers}, &out); err != nil {
		return nil, fmt.Errorf("[admin.Client.ListUsers] %w", err)
	}
	return out, nil
}

func (c *Client) ActivateUser(ctx context.Context, id string) (*users.User, error) {
	return c.setActive(ctx, id, "activate")
}

// DeactivateUser blocks the user from logging in; existing votes are kept.
func (c *Client) DeactivateUser(ctx context.Context, id string) (*users.User, error) {
	return c.setActive(ctx, id, "deactivate")
}

func (c *Client) setActive(ctx context.Context, id, action string) (*users.User, error) {
	var out users.User
	path := RouteUsers + url.PathEscape(id) + "/" + action
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodPut, Path: path}, &out); err != nil {
		return nil, fmt.Errorf("[admin.Client] %s: %w", path, err)
	}
	return &out, nil
}

// ChangePassword sets a new password for the signed-in admin.
func (c *Client) ChangePassword(ctx context.Context, newPassword string) error {
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return fmt.Errorf("[admin.Client.ChangePassword] %w: password must have at least %d characters",
			apperrors.ErrInvalidRequest, MinPasswordLength)
	}
	err := c.doer.Do(ctx, backend.Request{
		Method: http.MethodPut,
		Path:   RouteChangePassword,
		Body:   map[string]string{"newPassword": newPassword},
	}, nil)
	if err != nil {
		return fmt.Errorf("[admin.Client.ChangePassword] %w", err)
	}
	return nil
}
