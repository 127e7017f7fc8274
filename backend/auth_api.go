package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/token"
	"github.com/jrsteele09/go-mvp-voting/users"
)

// Authentication routes
const (
	RouteLogin            = "/auth/login"
	RouteRegister         = "/auth/register"
	RouteAdminRegister    = "/admin/register"
	RouteIdentityLogin    = "/auth/firebase-login"
	RouteRefreshToken     = "/auth/refresh-token"
	RouteForgotPassword   = "/auth/forgot-password"
	RouteResetPassword    = "/auth/reset-password"
	RouteVerifyResetToken = "/auth/verify-reset-token/"
)

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// IdentityLoginRequest carries a sign-in provider ID token to RouteIdentityLogin.
type IdentityLoginRequest struct {
	Token string `json:"token"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"nombre"`
	Password string `json:"password"`
}

// AuthResponse is returned by login, register and the identity-provider exchange.
type AuthResponse struct {
	Success      bool            `json:"success"`
	UserType     string          `json:"userType"`
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	ExpiresAt    token.Timestamp `json:"expiresAt"`
	User         *users.User     `json:"user,omitempty"`
	Admin        *users.Admin    `json:"admin,omitempty"`
}

type RefreshResponse struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	ExpiresAt    token.Timestamp `json:"expiresAt"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Valid   bool   `json:"valid,omitempty"`
	Message string `json:"message"`
}

// AuthAPI calls the unauthenticated authentication endpoints.
type AuthAPI struct {
	client Doer
}

func NewAuthAPI(client Doer) *AuthAPI {
	return &AuthAPI{client: client}
}

func (a *AuthAPI) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	return a.authenticate(ctx, RouteLogin, req)
}

func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	return a.authenticate(ctx, RouteRegister, req)
}

func (a *AuthAPI) RegisterAdmin(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	return a.authenticate(ctx, RouteAdminRegister, req)
}

// ExchangeIdentityToken trades a sign-in provider ID token for a backend session.
func (a *AuthAPI) ExchangeIdentityToken(ctx context.Context, idToken string) (*AuthResponse, error) {
	return a.authenticate(ctx, RouteIdentityLogin, IdentityLoginRequest{Token: idToken})
}

func (a *AuthAPI) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var out RefreshResponse
	err := a.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   RouteRefreshToken,
		Body:   map[string]string{"refreshToken": refreshToken},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("[AuthAPI.RefreshToken] %w", err)
	}
	return &out, nil
}

func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	var out MessageResponse
	err := a.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   RouteForgotPassword,
		Body:   map[string]string{"email": email},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("[AuthAPI.ForgotPassword] %w", err)
	}
	return &out, nil
}

func (a *AuthAPI) ResetPassword(ctx context.Context, resetToken, newPassword string) (*MessageResponse, error) {
	var out MessageResponse
	err := a.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   RouteResetPassword,
		Body:   map[string]string{"token": resetToken, "newPassword": newPassword},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("[AuthAPI.ResetPassword] %w", err)
	}
	return &out, nil
}

func (a *AuthAPI) VerifyResetToken(ctx context.Context, resetToken string) (*MessageResponse, error) {
	var out MessageResponse
	err := a.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   RouteVerifyResetToken + url.PathEscape(resetToken),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("[AuthAPI.VerifyResetToken] %w", err)
	}
	return &out, nil
}

func (a *AuthAPI) authenticate(ctx context.Context, path string, body any) (*AuthResponse, error) {
	var out AuthResponse
	err := a.client.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, &out)
	if err != nil {
		switch apperrors.StatusCode(err) {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict:
			return nil, fmt.Errorf("[AuthAPI] %s: %w: %w", path, apperrors.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("[AuthAPI] %s: %w", path, err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("[AuthAPI] %s: %w: no token in response", path, apperrors.ErrMalformed)
	}
	return &out, nil
}
