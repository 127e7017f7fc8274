package voting

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jrsteele09/go-mvp-voting/matches"
	"github.com/jrsteele09/go-mvp-voting/players"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultAlreadyVotedReason is shown when the backend refuses without a reason.
const DefaultAlreadyVotedReason = "Ya has realizado tu voto para este partido."

// ViewState is one of the mutually exclusive vote page states.
type ViewState string

const (
	ViewVotable      ViewState = "votable"
	ViewAlreadyVoted ViewState = "already-voted"
	ViewWindowClosed ViewState = "window-closed"
	ViewUnknown      ViewState = "unknown"
)

// Countdown counts down from Remaining starting at From.
type Countdown struct {
	Remaining time.Duration
	From      time.Time
}

func (c Countdown) Left(now time.Time) time.Duration {
	left := c.Remaining - now.Sub(c.From)
	if left < 0 {
		return 0
	}
	return left
}

// View is everything needed to render the vote page for one match.
type View struct {
	State     ViewState
	Match     matches.Match
	Reason    string
	Countdown *Countdown
	Roster    []players.Player // Only set when State is ViewVotable
	Err       error            // Only set when State is ViewUnknown
}

// Validator answers eligibility queries; *Client implements it.
type Validator interface {
	Validate(ctx context.Context, matchID string) (*Eligibility, error)
}

// Gate turns a fresh eligibility check into a View.
type Gate struct {
	validator Validator
	nowFunc   func() time.Time
	logger    zerolog.Logger
}

type GateOption func(*Gate)

func WithGateNowFunc(nowFunc func() time.Time) GateOption {
	return func(g *Gate) {
		g.nowFunc = nowFunc
	}
}

func WithGateLogger(logger zerolog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

func NewGate(validator Validator, options ...GateOption) *Gate {
	g := &Gate{
		validator: validator,
		nowFunc:   time.Now,
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Evaluate always queries the backend. A failed query yields ViewUnknown;
// it never defaults to allowing or denying the vote.
func (g *Gate) Evaluate(ctx context.Context, match matches.Match) View {
	eligibility, err := g.validator.Validate(ctx, match.ID)
	if err != nil {
		g.logger.Warn().Err(err).Str("match", match.ID).Msg("vote validation failed")
		return View{State: ViewUnknown, Match: match, Err: err}
	}

	if eligibility.CanVote {
		return View{State: ViewVotable, Match: match, Roster: match.Roster}
	}

	view := View{
		State:  ViewAlreadyVoted,
		Match:  match,
		Reason: eligibility.Reason,
	}
	if !match.InProgress() {
		view.State = ViewWindowClosed
	}
	if view.Reason == "" {
		view.Reason = DefaultAlreadyVotedReason
	}
	if remaining, ok := eligibility.Remaining(); ok {
		view.Countdown = &Countdown{Remaining: remaining, From: g.nowFunc()}
	}
	return view
}

// Render writes a text rendition of view as of now.
func Render(w io.Writer, view View, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Partido %s\n", view.Match.Title())

	switch view.State {
	case ViewVotable:
		b.WriteString("Elegí al jugador más valioso:\n")
		for i, p := range view.Roster {
			fmt.Fprintf(&b, "  %2d. %s", i+1, p.DisplayName())
			if p.Shirt > 0 {
				fmt.Fprintf(&b, " #%d", p.Shirt)
			}
			fmt.Fprintf(&b, " [%s]\n", p.ID)
		}
	case ViewAlreadyVoted, ViewWindowClosed:
		b.WriteString(view.Reason + "\n")
		if view.Countdown != nil {
			left := view.Countdown.Left(now)
			fmt.Fprintf(&b, "Tiempo restante: %02d:%02d\n", int(left/time.Minute), int(left%time.Minute/time.Second))
		}
	default:
		b.WriteString("No se pudo validar tu voto. Reintentá en unos segundos.\n")
		if view.Err != nil {
			fmt.Fprintf(&b, "Detalle: %v\n", view.Err)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
