// Package cli implements the mvpctl commands on top of the client packages.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jrsteele09/go-mvp-voting/activity"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUsage is returned for unknown commands or bad arguments.
var ErrUsage = errors.New("usage error")

const usage = `Usage: mvpctl <command> [flags]

Session
  login -email E [-password P] [-remember]
  register -email E -name N [-password P]
  idp-login -token ID_TOKEN
  logout
  whoami
  refresh
  forgot-password -email E
  reset-password -token T [-password P]

Voting
  matches active|last|all [-force]
  vote status MATCH_ID
  vote cast MATCH_ID PLAYER_ID
  results MATCH_ID
  players list [-page N] [-limit N] [-sort nombre|apodo|camada] [-order asc|desc] [-camada YEAR]

Admin
  admin match start|finish MATCH_ID
  admin player toggle PLAYER_ID
  admin users list
  admin users activate|deactivate USER_ID
  admin password [-new P]
`

type command func(ctx context.Context, args []string) error

// App dispatches one command per Run.
type App struct {
	services *Services
	out      io.Writer
	in       *bufio.Reader
	nowFunc  func() time.Time
	logger   zerolog.Logger
	commands map[string]command
}

type Option func(*App)

func WithInput(in io.Reader) Option {
	return func(a *App) {
		a.in = bufio.NewReader(in)
	}
}

func WithNowFunc(nowFunc func() time.Time) Option {
	return func(a *App) {
		a.nowFunc = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

func New(services *Services, out io.Writer, options ...Option) *App {
	a := &App{
		services: services,
		out:      out,
		in:       bufio.NewReader(strings.NewReader("")),
		nowFunc:  time.Now,
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(a)
	}
	a.commands = map[string]command{
		"login":           a.login,
		"register":        a.register,
		"idp-login":       a.identityLogin,
		"logout":          a.logout,
		"whoami":          a.whoami,
		"refresh":         a.refresh,
		"forgot-password": a.forgotPassword,
		"reset-password":  a.resetPassword,
		"matches":         a.matches,
		"vote":            a.vote,
		"results":         a.results,
		"players":         a.players,
		"admin":           a.admin,
	}

	services.Auth.OnLogout(func(reason error) {
		if reason == nil {
			return
		}
		fmt.Fprintf(a.out, "Tu sesión terminó: %s\nIniciá sesión de nuevo con: mvpctl login -email TU_EMAIL\n", describeLogout(reason))
	})
	return a
}

// Run executes args[0] with the remaining arguments.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(a.out, usage)
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}

	cmd, ok := a.commands[args[0]]
	if !ok {
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	if a.services.Auth.Session() == nil {
		if _, err := a.services.Auth.Restore(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("stored session could not be restored")
		}
	}
	// Running a command is user activity.
	a.services.Auth.Activity().Observe(activity.KeyPress)

	return cmd(ctx, args[1:])
}

func (a *App) requireSession() error {
	if !a.services.Auth.IsAuthenticated() {
		return fmt.Errorf("%w: iniciá sesión con mvpctl login", apperrors.ErrNoSession)
	}
	return nil
}

// readSecret returns value, or reads one line from input when value is empty.
func (a *App) readSecret(prompt, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func describeLogout(reason error) string {
	switch {
	case apperrors.Is(reason, apperrors.ErrSessionExpiredLocally):
		return "inactividad"
	case apperrors.Is(reason, apperrors.ErrSessionRevoked):
		return "sesión revocada por el servidor"
	case apperrors.Is(reason, apperrors.ErrTokenRefreshFailed), apperrors.Is(reason, apperrors.ErrUnauthorized):
		return "credenciales vencidas"
	}
	return reason.Error()
}
