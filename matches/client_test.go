package matches_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-mvp-voting/backend/backendtest"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/matches"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const activeBody = `[{
	"_id": "m-1",
	"fecha": "2025-03-01T20:00:00.000Z",
	"rival": "Club Atlético Sur",
	"estado": "en_proceso",
	"jugadores": [
		{"_id": "p-1", "nombre": "Nicolás Pérez", "apodo": "Nico", "camiseta": 10, "activo": true},
		"p-2"
	]
}]`

func newClient(t *testing.T) (*backendtest.Server, *matches.Client) {
	t.Helper()
	server := backendtest.NewServer(t)
	return server, matches.NewClient(server.Client(t), matches.WithLogger(zerolog.Nop()))
}

func rosterIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p-%d", i+1)
	}
	return ids
}

func TestClient_Active(t *testing.T) {
	ctx := context.Background()
	server, client := newClient(t)
	server.Handle(http.MethodGet, matches.RouteActive, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(activeBody))
	})

	got, err := client.Active(ctx, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	match := got[0]
	require.Equal(t, "m-1", match.ID)
	require.True(t, match.InProgress())
	require.Len(t, match.Roster, 2)
	require.Equal(t, "p-1", match.Roster[0].ID)
	require.Equal(t, "Nico", match.Roster[0].Nickname)
	require.Equal(t, "p-2", match.Roster[1].ID)

	scheduled, err := match.ScheduledAt()
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC), scheduled)

	t.Run("served from cache", func(t *testing.T) {
		_, err := client.Active(ctx, false)
		require.NoError(t, err)
		require.Equal(t, 1, server.Calls(http.MethodGet, matches.RouteActive))
	})

	t.Run("force reloads", func(t *testing.T) {
		_, err := client.Active(ctx, true)
		require.NoError(t, err)
		require.Equal(t, 2, server.Calls(http.MethodGet, matches.RouteActive))
	})

	t.Run("admin write invalidates", func(t *testing.T) {
		server.HandleJSON(http.MethodPut, "/matches/m-1/finish", http.StatusOK, map[string]string{"_id": "m-1", "estado": "finalizado"})
		finished, err := client.Finish(ctx, "m-1")
		require.NoError(t, err)
		require.Equal(t, matches.StateFinished, finished.State)

		_, err = client.Active(ctx, false)
		require.NoError(t, err)
		require.Equal(t, 3, server.Calls(http.MethodGet, matches.RouteActive))
	})

	t.Run("failure keeps nothing", func(t *testing.T) {
		client.Invalidate()
		server.Handle(http.MethodGet, matches.RouteActive, func(w http.ResponseWriter, _ *http.Request) {
			backendtest.Message(w, http.StatusServiceUnavailable, "mantenimiento")
		})
		_, err := client.Active(ctx, false)
		require.ErrorIs(t, err, apperrors.ErrNetworkOrServer)
	})
}

func TestClient_LastMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("null means none", func(t *testing.T) {
		server, client := newClient(t)
		server.Handle(http.MethodGet, matches.RouteLastMatch, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("null"))
		})
		got, err := client.LastMatch(ctx)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("finished match with winner", func(t *testing.T) {
		server, client := newClient(t)
		server.Handle(http.MethodGet, matches.RouteLastMatch, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"m-0","rival":"Norte","estado":"finalizado","jugadores":[],"ganador":{"id":"p-1","nombre":"Nico"}}`))
		})
		got, err := client.LastMatch(ctx)
		require.NoError(t, err)
		require.Equal(t, "m-0", got.ID)
		require.Equal(t, "Nico", got.Winner.Name)
	})
}

func TestClient_Create(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2025, 3, 8, 18, 30, 0, 0, time.UTC)

	for _, n := range []int{0, 14, 24} {
		t.Run(fmt.Sprintf("roster of %d rejected locally", n), func(t *testing.T) {
			server, client := newClient(t)
			_, err := client.Create(ctx, matches.CreateRequest{Date: date, Opponent: "Norte", Roster: rosterIDs(n)})
			require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
			require.ErrorContains(t, err, "Debes seleccionar entre 15 y 23 jugadores")
			require.Zero(t, server.Calls(http.MethodPost, matches.RouteMatches))
		})
	}

	t.Run("duplicate player rejected", func(t *testing.T) {
		_, client := newClient(t)
		ids := rosterIDs(15)
		ids[14] = ids[0]
		_, err := client.Create(ctx, matches.CreateRequest{Date: date, Opponent: "Norte", Roster: ids})
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	for _, n := range []int{15, 23} {
		t.Run(fmt.Sprintf("roster of %d accepted", n), func(t *testing.T) {
			server, client := newClient(t)
			server.Handle(http.MethodPost, matches.RouteMatches, func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Len(t, body["jugadores"], n)
				require.Equal(t, "Norte", body["rival"])
				backendtest.WriteJSON(w, http.StatusCreated, map[string]any{"_id": "m-9", "rival": "Norte", "estado": "programado"})
			})

			created, err := client.Create(ctx, matches.CreateRequest{Date: date, Opponent: "Norte", Roster: rosterIDs(n)})
			require.NoError(t, err)
			require.Equal(t, "m-9", created.ID)
			require.Equal(t, matches.StateScheduled, created.State)
		})
	}
}

func TestClient_StartAndDelete(t *testing.T) {
	ctx := context.Background()
	server, client := newClient(t)
	server.HandleJSON(http.MethodPut, "/matches/m-1/start", http.StatusOK, map[string]string{"_id": "m-1", "estado": "en_proceso"})
	server.HandleJSON(http.MethodDelete, "/matches/m-1", http.StatusNoContent, nil)
	server.HandleJSON(http.MethodGet, "/matches/missing", http.StatusNotFound, map[string]string{"message": "Partido no encontrado"})

	started, err := client.Start(ctx, "m-1")
	require.NoError(t, err)
	require.True(t, started.InProgress())

	require.NoError(t, client.Delete(ctx, "m-1"))

	_, err = client.ByID(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
