// Package gateway sends authenticated requests to the voting backend and
// reacts to authentication failures on behalf of the auth controller.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-mvp-voting/backend"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-ID"

// SessionProvider is the part of the auth controller the gateway depends on.
type SessionProvider interface {
	// Session returns a copy of the held session, or nil
	Session() *sessions.Session

	// ShouldRefresh reports whether session is close enough to expiry to refresh first
	ShouldRefresh(session *sessions.Session) bool

	// Refresh renews the token; a failure has already ended the session
	Refresh(ctx context.Context) (bool, error)

	// ForceLogout ends the session for generation unless it was superseded
	ForceLogout(generation uint64, reason error)
}

// Gateway implements backend.Doer with bearer authentication.
type Gateway struct {
	client   *backend.Client
	sessions SessionProvider
	logger   zerolog.Logger
}

var _ backend.Doer = (*Gateway)(nil)

type Option func(*Gateway)

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func New(client *backend.Client, provider SessionProvider, options ...Option) *Gateway {
	g := &Gateway{
		client:   client,
		sessions: provider,
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Do sends req, decoding a 2xx body into out. A 401 on an authenticated
// request is retried exactly once after a refresh.
func (g *Gateway) Do(ctx context.Context, req backend.Request, out any) error {
	session, err := g.currentSession(ctx)
	if err != nil {
		return fmt.Errorf("[Gateway.Do] %s: %w", req.Path, err)
	}

	resp, err := g.send(ctx, req, session)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && session != nil {
		g.logger.Debug().Str("path", req.Path).Msg("access token rejected, refreshing once")
		if ok, refreshErr := g.sessions.Refresh(ctx); !ok {
			return fmt.Errorf("[Gateway.Do] %s: %w", req.Path, refreshErr)
		}
		session = g.sessions.Session()
		if session == nil {
			return fmt.Errorf("[Gateway.Do] %s: %w", req.Path, apperrors.ErrNoSession)
		}

		resp, err = g.send(ctx, req, session)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			g.sessions.ForceLogout(session.Generation, apperrors.ErrUnauthorized)
			return fmt.Errorf("[Gateway.Do] %w: %w", apperrors.ErrUnauthorized, resp.Err())
		}
	}

	if resp.StatusCode == http.StatusForbidden && session != nil && revokesSession(resp.Message()) {
		g.sessions.ForceLogout(session.Generation, apperrors.ErrSessionRevoked)
		return fmt.Errorf("[Gateway.Do] %w: %w", apperrors.ErrSessionRevoked, resp.Err())
	}

	if err := resp.Err(); err != nil {
		return err
	}
	return resp.Decode(out)
}

func (g *Gateway) currentSession(ctx context.Context) (*sessions.Session, error) {
	session := g.sessions.Session()
	if session == nil {
		return nil, nil
	}
	if !g.sessions.ShouldRefresh(session) {
		return session, nil
	}
	if ok, err := g.sessions.Refresh(ctx); !ok {
		return nil, err
	}
	return g.sessions.Session(), nil
}

func (g *Gateway) send(ctx context.Context, req backend.Request, session *sessions.Session) (*backend.Response, error) {
	return g.client.Send(ctx, req, func(r *http.Request) {
		r.Header.Set(RequestIDHeader, uuid.NewString())
		if session != nil && session.Token != nil {
			session.Token.SetAuthHeader(r)
		}
	})
}

// revokesSession reports whether a 403 message says the session itself is no longer valid.
func revokesSession(message string) bool {
	message = strings.ToLower(message)
	for _, marker := range []string{"session", "sesión", "sesion", "token"} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
