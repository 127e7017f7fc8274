package cli

import (
	"fmt"

	"github.com/jrsteele09/go-mvp-voting/admin"
	"github.com/jrsteele09/go-mvp-voting/auth"
	"github.com/jrsteele09/go-mvp-voting/backend"
	"github.com/jrsteele09/go-mvp-voting/gateway"
	"github.com/jrsteele09/go-mvp-voting/identity"
	"github.com/jrsteele09/go-mvp-voting/internal/config"
	"github.com/jrsteele09/go-mvp-voting/matches"
	"github.com/jrsteele09/go-mvp-voting/players"
	"github.com/jrsteele09/go-mvp-voting/sessions"
	"github.com/jrsteele09/go-mvp-voting/voting"
	"github.com/rs/zerolog"
)

// Services is the fully wired client stack.
type Services struct {
	Auth    *auth.Controller
	AuthAPI *backend.AuthAPI
	Matches *matches.Client
	Players *players.Client
	Votes   *voting.Client
	Gate    *voting.Gate
	Admin   *admin.Client
}

// NewServices wires the backend client, auth controller and gateway around store.
func NewServices(cfg config.Config, store sessions.Store, logger zerolog.Logger, options ...auth.Option) (*Services, error) {
	client, err := backend.NewClient(cfg.GetAPIBaseURL(),
		backend.WithTimeout(cfg.GetRequestTimeout()),
		backend.WithHeaders(cfg.GetDefaultHeaders()),
		backend.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("[cli.NewServices] %w", err)
	}
	authAPI := backend.NewAuthAPI(client)

	authOptions := []auth.Option{
		auth.WithSessionConfig(cfg),
		auth.WithLogger(logger),
	}
	if cfg.GetVerifyIdentityTokens() && cfg.GetIdentityAudience() != "" {
		authOptions = append(authOptions, auth.WithIdentityVerifier(
			identity.NewDiscoveryVerifier(cfg.GetIdentityIssuer(), cfg.GetIdentityAudience())))
	}
	controller, err := auth.NewController(authAPI, store, append(authOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("[cli.NewServices] %w", err)
	}

	gw := gateway.New(client, controller, gateway.WithLogger(logger))
	votes := voting.NewClient(gw, voting.WithLogger(logger))
	return &Services{
		Auth:    controller,
		AuthAPI: authAPI,
		Matches: matches.NewClient(gw, matches.WithLogger(logger)),
		Players: players.NewClient(gw),
		Votes:   votes,
		Gate:    voting.NewGate(votes, voting.WithGateLogger(logger)),
		Admin:   admin.NewClient(gw),
	}, nil
}

func (s *Services) Close() error {
	return s.Auth.Close()
}
