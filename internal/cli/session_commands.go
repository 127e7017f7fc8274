package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/jrsteele09/go-mvp-voting/auth"
	"github.com/jrsteele09/go-mvp-voting/sessions"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password, read from input when empty")
	remember := fs.Bool("remember", false, "ask the backend for a longer session")
	if err := parse(fs, args); err != nil {
		return err
	}
	secret, err := a.readSecret("Contraseña: ", *password)
	if err != nil {
		return err
	}

	session, err := a.services.Auth.Login(ctx, auth.Credentials{Email: *email, Password: secret, RememberMe: *remember})
	if err != nil {
		return err
	}
	a.printWelcome(session)
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "account password, read from input when empty")
	admin := fs.Bool("admin", false, "register an admin account")
	if err := parse(fs, args); err != nil {
		return err
	}
	secret, err := a.readSecret("Contraseña: ", *password)
	if err != nil {
		return err
	}

	profile := auth.Profile{Email: *email, Name: *name, Password: secret}
	register := a.services.Auth.Register
	if *admin {
		register = a.services.Auth.RegisterAdmin
	}
	session, err := register(ctx, profile)
	if err != nil {
		return err
	}
	a.printWelcome(session)
	return nil
}

func (a *App) identityLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("idp-login")
	idToken := fs.String("token", "", "ID token issued by the sign-in provider")
	if err := parse(fs, args); err != nil {
		return err
	}
	session, err := a.services.Auth.LoginWithIdentityProvider(ctx, *idToken)
	if err != nil {
		return err
	}
	a.printWelcome(session)
	return nil
}

func (a *App) logout(_ context.Context, _ []string) error {
	a.services.Auth.Logout()
	fmt.Fprintln(a.out, "Sesión cerrada.")
	return nil
}

func (a *App) whoami(_ context.Context, _ []string) error {
	status := a.services.Auth.Status()
	if !status.IsAuthenticated || status.Identity == nil {
		fmt.Fprintln(a.out, "No hay sesión activa.")
		return nil
	}
	now := a.nowFunc()
	fmt.Fprintf(a.out, "%s <%s> (%s)\n", status.Identity.Name(), status.Identity.Email(), status.Identity.Role)
	fmt.Fprintf(a.out, "Token vence en %s\n", status.ExpiresAt.Sub(now).Round(time.Second))
	fmt.Fprintf(a.out, "Sesión inactiva se cierra en %s\n", status.InactivityDeadline.Sub(now).Round(time.Second))
	return nil
}

func (a *App) refresh(ctx context.Context, _ []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if _, err := a.services.Auth.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Token renovado, vence %s\n", a.services.Auth.Status().ExpiresAt.Format("02/01/2006 15:04"))
	return nil
}

func (a *App) forgotPassword(ctx context.Context, args []string) error {
	fs := newFlagSet("forgot-password")
	email := fs.String("email", "", "account email")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("%w: -email is required", ErrUsage)
	}
	resp, err := a.services.AuthAPI.ForgotPassword(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

func (a *App) resetPassword(ctx context.Context, args []string) error {
	fs := newFlagSet("reset-password")
	token := fs.String("token", "", "reset token from the email")
	password := fs.String("password", "", "new password, read from input when empty")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *token == "" {
		return fmt.Errorf("%w: -token is required", ErrUsage)
	}
	check, err := a.services.AuthAPI.VerifyResetToken(ctx, *token)
	if err != nil {
		return err
	}
	if !check.Valid && !check.Success {
		return fmt.Errorf("%w: %s", ErrUsage, check.Message)
	}
	secret, err := a.readSecret("Nueva contraseña: ", *password)
	if err != nil {
		return err
	}
	resp, err := a.services.AuthAPI.ResetPassword(ctx, *token, secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

func (a *App) printWelcome(session *sessions.Session) {
	fmt.Fprintf(a.out, "Hola %s, sesión iniciada como %s.\n", session.Identity.Name(), session.Identity.Role)
}
