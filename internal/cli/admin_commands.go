package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-mvp-voting/matches"
)

func (a *App) admin(ctx context.Context, args []string) error {
	if err := a.services.Auth.RequireAdmin(); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: admin match|player|users|password", ErrUsage)
	}

	switch args[0] {
	case "match":
		return a.adminMatch(ctx, args[1:])
	case "player":
		return a.adminPlayer(ctx, args[1:])
	case "users":
		return a.adminUsers(ctx, args[1:])
	case "password":
		return a.adminPassword(ctx, args[1:])
	}
	return fmt.Errorf("%w: unknown admin area %q", ErrUsage, args[0])
}

func (a *App) adminMatch(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: admin match start|finish MATCH_ID", ErrUsage)
	}
	var (
		match *matches.Match
		err   error
	)
	switch args[0] {
	case "start":
		match, err = a.services.Matches.Start(ctx, args[1])
	case "finish":
		match, err = a.services.Matches.Finish(ctx, args[1])
	default:
		return fmt.Errorf("%w: unknown match action %q", ErrUsage, args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Partido %s ahora está %s.\n", match.ID, match.State)
	return nil
}

func (a *App) adminPlayer(ctx context.Context, args []string) error {
	if len(args) != 2 || args[0] != "toggle" {
		return fmt.Errorf("%w: admin player toggle PLAYER_ID", ErrUsage)
	}
	current, err := a.services.Players.ByID(ctx, args[1])
	if err != nil {
		return err
	}
	updated, err := a.services.Players.ToggleActive(ctx, current.ID, current.Active)
	if err != nil {
		return err
	}
	state := "inactivo"
	if updated.Active {
		state = "activo"
	}
	fmt.Fprintf(a.out, "%s ahora está %s.\n", updated.DisplayName(), state)
	return nil
}

func (a *App) adminUsers(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: admin users list|activate|deactivate", ErrUsage)
	}
	switch args[0] {
	case "list":
		list, err := a.services.Admin.ListUsers(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNOMBRE\tEMAIL\tVOTOS\tACTIVO")
		for _, u := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n", u.ID, u.Name, u.Email, u.VotesCast, u.Active)
		}
		return tw.Flush()
	case "activate", "deactivate":
		if len(args) != 2 {
			return fmt.Errorf("%w: admin users %s USER_ID", ErrUsage, args[0])
		}
		update := a.services.Admin.ActivateUser
		if args[0] == "deactivate" {
			update = a.services.Admin.DeactivateUser
		}
		user, err := update(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Usuario %s activo=%t\n", user.ID, user.Active)
		return nil
	}
	return fmt.Errorf("%w: unknown users action %q", ErrUsage, args[0])
}

func (a *App) adminPassword(ctx context.Context, args []string) error {
	fs := newFlagSet("admin password")
	next := fs.String("new", "", "new password, read from input when empty")
	if err := parse(fs, args); err != nil {
		return err
	}
	secret, err := a.readSecret("Nueva contraseña: ", *next)
	if err != nil {
		return err
	}
	if err := a.services.Admin.ChangePassword(ctx, secret); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Contraseña actualizada.")
	return nil
}
