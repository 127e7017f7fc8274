package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/matches"
	"github.com/jrsteele09/go-mvp-voting/players"
	"github.com/jrsteele09/go-mvp-voting/voting"
)

func (a *App) matches(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: matches active|last|all", ErrUsage)
	}
	fs := newFlagSet("matches")
	force := fs.Bool("force", false, "bypass the cached list")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}

	var list []matches.Match
	var err error
	switch args[0] {
	case "active":
		list, err = a.services.Matches.Active(ctx, *force)
	case "all":
		list, err = a.services.Matches.All(ctx)
	case "last":
		var last *matches.Match
		if last, err = a.services.Matches.LastMatch(ctx); err == nil && last != nil {
			list = []matches.Match{*last}
		}
	default:
		return fmt.Errorf("%w: unknown matches view %q", ErrUsage, args[0])
	}
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No hay partidos.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPARTIDO\tESTADO\tJUGADORES\tGANADOR")
	for _, m := range list {
		winner := "-"
		if m.Winner != nil {
			winner = m.Winner.DisplayName()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", m.ID, m.Title(), m.State, len(m.Roster), winner)
	}
	return tw.Flush()
}

func (a *App) vote(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: vote status MATCH_ID | vote cast MATCH_ID PLAYER_ID", ErrUsage)
	}

	match, err := a.services.Matches.ByID(ctx, args[1])
	if err != nil {
		return err
	}
	view := a.services.Gate.Evaluate(ctx, *match)

	switch args[0] {
	case "status":
		return voting.Render(a.out, view, a.nowFunc())
	case "cast":
		if len(args) < 3 {
			return fmt.Errorf("%w: vote cast MATCH_ID PLAYER_ID", ErrUsage)
		}
		return a.castVote(ctx, view, args[2])
	}
	return fmt.Errorf("%w: unknown vote action %q", ErrUsage, args[0])
}

func (a *App) castVote(ctx context.Context, view voting.View, playerID string) error {
	if view.State != voting.ViewVotable {
		if err := voting.Render(a.out, view, a.nowFunc()); err != nil {
			return err
		}
		if view.State == voting.ViewUnknown {
			return view.Err
		}
		return nil
	}
	if !inRoster(view.Roster, playerID) {
		return fmt.Errorf("%w: player %s is not in the roster for this match", apperrors.ErrInvalidRequest, playerID)
	}

	vote, err := a.services.Votes.CreateVote(ctx, playerID, view.Match.ID)
	if apperrors.Is(err, apperrors.ErrVoteConflict) {
		reason := "el servidor rechazó el voto"
		var apiErr *apperrors.APIError
		if apperrors.As(err, &apiErr) && apiErr.Message != "" {
			reason = apiErr.Message
		}
		fmt.Fprintf(a.out, "Tu voto no se registró: %s\nConsultá los resultados con: mvpctl results %s\n", reason, view.Match.ID)
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "¡Gracias! Voto registrado (%s).\n", vote.ID)
	return nil
}

func inRoster(roster []players.Player, playerID string) bool {
	if len(roster) == 0 {
		return true
	}
	for _, p := range roster {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

func (a *App) results(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: results MATCH_ID", ErrUsage)
	}
	matchID := args[0]

	total, err := a.services.Votes.TotalVotes(ctx, matchID)
	if err != nil {
		return err
	}
	stats, err := a.services.Votes.Stats(ctx, matchID)
	if err != nil {
		return err
	}
	winner, err := a.services.Votes.Winner(ctx, matchID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Votos totales: %d\n", total)
	if winner != nil {
		fmt.Fprintf(a.out, "Ganador: %s (%d votos)\n", winner.PlayerName, winner.Votes)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JUGADOR\tVOTOS\t%")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.PlayerName, s.Votes, strconv.FormatFloat(s.Percentage, 'f', 1, 64))
	}
	return tw.Flush()
}

func (a *App) players(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return fmt.Errorf("%w: players list", ErrUsage)
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	fs := newFlagSet("players list")
	page := fs.Int("page", 0, "page number")
	limit := fs.Int("limit", 0, "page size")
	sort := fs.String("sort", "", "nombre|apodo|camada")
	order := fs.String("order", "", "asc|desc")
	cohort := fs.Int("camada", 0, "only this cohort")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}

	list, err := a.services.Players.List(ctx, players.Pagination{
		Page:   *page,
		Limit:  *limit,
		Sort:   players.SortField(*sort),
		Order:  players.SortOrder(*order),
		Cohort: *cohort,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tJUGADOR\tPOSICIÓN\tCAMISETA\tCAMADA\tACTIVO")
	for _, p := range list.Players {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%t\n", p.ID, p.DisplayName(), p.Position, p.Shirt, p.Cohort, p.Active)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d de %d jugadores\n", len(list.Players), list.Total)
	return nil
}
