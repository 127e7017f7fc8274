package voting_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-mvp-voting/internal/utils"
	"github.com/jrsteele09/go-mvp-voting/matches"
	"github.com/jrsteele09/go-mvp-voting/players"
	"github.com/jrsteele09/go-mvp-voting/voting"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	eligibility *voting.Eligibility
	err         error
	calls       int
}

func (s *stubValidator) Validate(_ context.Context, _ string) (*voting.Eligibility, error) {
	s.calls++
	return s.eligibility, s.err
}

var evaluatedAt = time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)

func testMatch(state matches.State) matches.Match {
	return matches.Match{
		ID:       "match123",
		Date:     "2025-03-01T20:00:00Z",
		Opponent: "Club Atlético Sur",
		State:    state,
		Roster: []players.Player{
			{ID: "p-1", Name: "Nicolás Pérez", Nickname: "Nico", Shirt: 10, Active: true},
			{ID: "p-2", Name: "Tomás Gómez", Shirt: 5, Active: true},
		},
	}
}

func evaluate(t *testing.T, v *stubValidator, match matches.Match) (voting.View, string) {
	t.Helper()
	gate := voting.NewGate(v, voting.WithGateNowFunc(func() time.Time { return evaluatedAt }), voting.WithGateLogger(zerolog.Nop()))
	view := gate.Evaluate(context.Background(), match)
	var out bytes.Buffer
	require.NoError(t, voting.Render(&out, view, evaluatedAt))
	return view, out.String()
}

func TestGate_Evaluate(t *testing.T) {
	t.Run("votable renders the roster", func(t *testing.T) {
		view, out := evaluate(t, &stubValidator{eligibility: &voting.Eligibility{CanVote: true}}, testMatch(matches.StateInProgress))
		require.Equal(t, voting.ViewVotable, view.State)
		require.Len(t, view.Roster, 2)
		require.Contains(t, out, "Nicolás Pérez (Nico) #10")
		require.Contains(t, out, "Tomás Gómez #5")
	})

	t.Run("already voted shows exact reason and countdown without roster", func(t *testing.T) {
		v := &stubValidator{eligibility: &voting.Eligibility{CanVote: false, Reason: "Ya has votado", RemainingSeconds: utils.Ptr(120.0)}}
		view, out := evaluate(t, v, testMatch(matches.StateInProgress))

		require.Equal(t, voting.ViewAlreadyVoted, view.State)
		require.Equal(t, "Ya has votado", view.Reason)
		require.Empty(t, view.Roster)
		require.NotNil(t, view.Countdown)
		require.Equal(t, 120*time.Second, view.Countdown.Left(evaluatedAt))
		require.Equal(t, 90*time.Second, view.Countdown.Left(evaluatedAt.Add(30*time.Second)))
		require.Zero(t, view.Countdown.Left(evaluatedAt.Add(5*time.Minute)))

		require.Contains(t, out, "Ya has votado\n")
		require.Contains(t, out, "Tiempo restante: 02:00")
		require.NotContains(t, out, "Nicolás")
		require.NotContains(t, out, "Tomás")
	})

	t.Run("closed window", func(t *testing.T) {
		v := &stubValidator{eligibility: &voting.Eligibility{CanVote: false, Reason: "El partido no está en proceso"}}
		view, out := evaluate(t, v, testMatch(matches.StateFinished))

		require.Equal(t, voting.ViewWindowClosed, view.State)
		require.Nil(t, view.Countdown)
		require.Contains(t, out, "El partido no está en proceso")
		require.NotContains(t, out, "Tiempo restante")
	})

	t.Run("missing reason uses the default text", func(t *testing.T) {
		view, _ := evaluate(t, &stubValidator{eligibility: &voting.Eligibility{}}, testMatch(matches.StateInProgress))
		require.Equal(t, voting.DefaultAlreadyVotedReason, view.Reason)
	})

	t.Run("validation failure is unknown, not allow or deny", func(t *testing.T) {
		view, out := evaluate(t, &stubValidator{err: errors.New("connection refused")}, testMatch(matches.StateInProgress))
		require.Equal(t, voting.ViewUnknown, view.State)
		require.Empty(t, view.Roster)
		require.Empty(t, view.Reason)
		require.Contains(t, out, "Reintentá")
		require.NotContains(t, out, "Nicolás")
	})

	t.Run("every evaluation queries the backend", func(t *testing.T) {
		v := &stubValidator{eligibility: &voting.Eligibility{CanVote: true}}
		gate := voting.NewGate(v, voting.WithGateLogger(zerolog.Nop()))
		gate.Evaluate(context.Background(), testMatch(matches.StateInProgress))
		gate.Evaluate(context.Background(), testMatch(matches.StateInProgress))
		require.Equal(t, 2, v.calls)
	})
}
