package voting_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-mvp-voting/backend/backendtest"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/voting"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*backendtest.Server, *voting.Client) {
	t.Helper()
	server := backendtest.NewServer(t)
	return server, voting.NewClient(server.Client(t), voting.WithLogger(zerolog.Nop()))
}

func TestClient_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("refused with reason and countdown", func(t *testing.T) {
		server, client := newClient(t)
		server.HandleJSON(http.MethodGet, "/votes/validate/match123", http.StatusOK,
			map[string]any{"puedeVotar": false, "razon": "Ya has votado", "tiempoRestante": 120})

		el, err := client.Validate(ctx, "match123")
		require.NoError(t, err)
		require.False(t, el.CanVote)
		require.Equal(t, "Ya has votado", el.Reason)
		remaining, ok := el.Remaining()
		require.True(t, ok)
		require.Equal(t, 120*time.Second, remaining)
	})

	t.Run("never cached", func(t *testing.T) {
		server, client := newClient(t)
		server.HandleJSON(http.MethodGet, "/votes/validate/m-1", http.StatusOK, map[string]any{"puedeVotar": true})

		for i := 0; i < 3; i++ {
			_, err := client.Validate(ctx, "m-1")
			require.NoError(t, err)
		}
		require.Equal(t, 3, server.Calls(http.MethodGet, "/votes/validate/m-1"))
	})

	t.Run("empty match id", func(t *testing.T) {
		_, client := newClient(t)
		_, err := client.Validate(ctx, " ")
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})
}

func TestClient_CreateVote(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		server, client := newClient(t)
		server.Handle(http.MethodPost, voting.RouteVotes, func(w http.ResponseWriter, r *http.Request) {
			var body voting.CreateVoteRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, voting.CreateVoteRequest{PlayerID: "p-9", MatchID: "m-1"}, body)
			backendtest.WriteJSON(w, http.StatusCreated, map[string]any{
				"id": "v-1", "playerId": "p-9", "matchId": "m-1", "fechaVoto": "2025-03-01T20:15:00Z",
			})
		})

		vote, err := client.CreateVote(ctx, "p-9", "m-1")
		require.NoError(t, err)
		require.Equal(t, "v-1", vote.ID)
		require.Equal(t, time.Date(2025, 3, 1, 20, 15, 0, 0, time.UTC), vote.CastAt)
	})

	for _, status := range []int{http.StatusBadRequest, http.StatusConflict} {
		t.Run("rejection is a vote conflict "+http.StatusText(status), func(t *testing.T) {
			server, client := newClient(t)
			server.Handle(http.MethodPost, voting.RouteVotes, func(w http.ResponseWriter, _ *http.Request) {
				backendtest.Message(w, status, "Ya votaste en este partido")
			})

			_, err := client.CreateVote(ctx, "p-9", "m-1")
			require.ErrorIs(t, err, apperrors.ErrVoteConflict)
			var apiErr *apperrors.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, "Ya votaste en este partido", apiErr.Message)
		})
	}

	t.Run("server error is not a conflict", func(t *testing.T) {
		server, client := newClient(t)
		server.Handle(http.MethodPost, voting.RouteVotes, func(w http.ResponseWriter, _ *http.Request) {
			backendtest.Message(w, http.StatusBadGateway, "upstream")
		})

		_, err := client.CreateVote(ctx, "p-9", "m-1")
		require.ErrorIs(t, err, apperrors.ErrNetworkOrServer)
		require.NotErrorIs(t, err, apperrors.ErrVoteConflict)
	})

	t.Run("double submit sends one request", func(t *testing.T) {
		server, client := newClient(t)
		release := make(chan struct{})
		server.Handle(http.MethodPost, voting.RouteVotes, func(w http.ResponseWriter, _ *http.Request) {
			<-release
			backendtest.WriteJSON(w, http.StatusCreated, map[string]any{"id": "v-1", "playerId": "p-9", "matchId": "m-1"})
		})

		var wg sync.WaitGroup
		ids := make(chan string, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				vote, err := client.CreateVote(ctx, "p-9", "m-1")
				if err == nil {
					ids <- vote.ID
				}
			}()
		}
		require.Eventually(t, func() bool {
			return server.Calls(http.MethodPost, voting.RouteVotes) == 1
		}, time.Second, 5*time.Millisecond)

		_, err := client.CreateVote(ctx, "p-3", "m-1")
		require.ErrorIs(t, err, apperrors.ErrSubmissionInFlight)

		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()
		close(ids)

		for id := range ids {
			require.Equal(t, "v-1", id)
		}
		require.Equal(t, 1, server.Calls(http.MethodPost, voting.RouteVotes))
	})
}

func TestClient_Results(t *testing.T) {
	ctx := context.Background()
	server, client := newClient(t)
	stats := []voting.PlayerStats{
		{PlayerID: "p-1", PlayerName: "Nico", Votes: 12, Percentage: 60},
		{PlayerID: "p-2", PlayerName: "Tomi", Votes: 8, Percentage: 40},
	}
	server.HandleJSON(http.MethodGet, "/votes/m-1/stats", http.StatusOK, stats)
	server.HandleJSON(http.MethodGet, "/votes/m-1/top3", http.StatusOK, stats)
	server.HandleJSON(http.MethodGet, "/votes/m-1/winner", http.StatusOK, stats[0])
	server.HandleJSON(http.MethodGet, "/votes/m-1/total-votes", http.StatusOK, 20)
	server.HandleJSON(http.MethodGet, "/votes/m-2/winner", http.StatusOK, nil)
	server.HandleJSON(http.MethodGet, "/votes/m-2/total-votes", http.StatusOK, map[string]int{"totalVotos": 0})

	got, err := client.Stats(ctx, "m-1")
	require.NoError(t, err)
	require.Equal(t, stats, got)

	top, err := client.Top3(ctx, "m-1")
	require.NoError(t, err)
	require.Len(t, top, 2)

	winner, err := client.Winner(ctx, "m-1")
	require.NoError(t, err)
	require.Equal(t, "Nico", winner.PlayerName)

	total, err := client.TotalVotes(ctx, "m-1")
	require.NoError(t, err)
	require.Equal(t, 20, total)

	winner, err = client.Winner(ctx, "m-2")
	require.NoError(t, err)
	require.Nil(t, winner)

	total, err = client.TotalVotes(ctx, "m-2")
	require.NoError(t, err)
	require.Zero(t, total)
}
