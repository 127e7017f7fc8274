package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-mvp-voting/internal/cli"
	"github.com/jrsteele09/go-mvp-voting/internal/config"
	"github.com/jrsteele09/go-mvp-voting/sessions"
	"github.com/rs/zerolog"
)

const sessionFile = "session.json"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logger := newLogger(c.GetLogLevel())
	if showBanner(args) {
		displayAppname(c.GetAppName())
	}

	store, err := newSessionStore(c, logger)
	if err != nil {
		return err
	}
	services, err := cli.NewServices(c, store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to stop session clock")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.New(services, os.Stdout, cli.WithInput(os.Stdin), cli.WithLogger(logger))
	return app.Run(ctx, args)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// newSessionStore keeps the session in an encrypted file under the data folder.
// Without a passphrase the session only lives for this process.
func newSessionStore(c config.Config, logger zerolog.Logger) (sessions.Store, error) {
	passphrase := c.GetSessionPassphrase()
	if passphrase == "" {
		logger.Warn().Msg("MVP_SESSION_KEY not set, the session will not be kept between commands")
		return sessions.NewMemoryStore(), nil
	}
	store, err := sessions.NewFileStore(filepath.Join(c.GetDataFolder(), sessionFile), passphrase)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	return store, nil
}

func showBanner(args []string) bool {
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "help", "-h", "--help", "login", "register":
		return true
	}
	return false
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(os.Stderr, myFigure.String())
}
