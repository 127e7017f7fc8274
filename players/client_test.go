package players_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-mvp-voting/backend/backendtest"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/players"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*backendtest.Server, *players.Client) {
	t.Helper()
	server := backendtest.NewServer(t)
	return server, players.NewClient(server.Client(t))
}

func TestClient_List(t *testing.T) {
	ctx := context.Background()

	t.Run("paginated", func(t *testing.T) {
		server, client := newClient(t)
		server.HandleJSON(http.MethodGet, players.RoutePlayers, http.StatusOK, map[string]any{
			"jugadores": []map[string]any{{"id": "p-1", "nombre": "Nico", "camada": 2008, "activo": true}},
			"total":     31,
			"camada":    2008,
		})

		list, err := client.List(ctx, players.Pagination{Page: 2, Limit: 10, Sort: players.SortByName, Order: players.Descending, Cohort: 2008})
		require.NoError(t, err)
		require.Equal(t, 31, list.Total)
		require.Len(t, list.Players, 1)
		require.Equal(t, 2008, list.Players[0].Cohort)

		query, err := url.ParseQuery(server.Requests()[0].Query)
		require.NoError(t, err)
		require.Equal(t, "2", query.Get("page"))
		require.Equal(t, "10", query.Get("limit"))
		require.Equal(t, "nombre", query.Get("sort"))
		require.Equal(t, "desc", query.Get("order"))
		require.Equal(t, "2008", query.Get("camada"))
	})

	t.Run("bare array", func(t *testing.T) {
		server, client := newClient(t)
		server.HandleJSON(http.MethodGet, players.RoutePlayers, http.StatusOK, []map[string]any{
			{"_id": "p-1", "nombre": "Nico"}, {"_id": "p-2", "nombre": "Tomi"},
		})

		list, err := client.List(ctx, players.Pagination{})
		require.NoError(t, err)
		require.Equal(t, 2, list.Total)
		require.Equal(t, "p-2", list.Players[1].ID)
		require.Empty(t, server.Requests()[0].Query)
	})

	t.Run("bad sort rejected locally", func(t *testing.T) {
		server, client := newClient(t)
		_, err := client.List(ctx, players.Pagination{Sort: "goles"})
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		require.Empty(t, server.Requests())
	})
}

func TestClient_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("create validates", func(t *testing.T) {
		server, client := newClient(t)
		_, err := client.Create(ctx, players.CreateRequest{Shirt: 120})
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		require.ErrorContains(t, err, "nombre is required")
		require.ErrorContains(t, err, "camiseta 120")
		require.Empty(t, server.Requests())
	})

	t.Run("create", func(t *testing.T) {
		server, client := newClient(t)
		server.Handle(http.MethodPost, players.RoutePlayers, func(w http.ResponseWriter, r *http.Request) {
			var body players.CreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "Nicolás Pérez", body.Name)
			backendtest.WriteJSON(w, http.StatusCreated, map[string]any{"id": "p-1", "nombre": body.Name, "activo": true})
		})

		p, err := client.Create(ctx, players.CreateRequest{Name: "Nicolás Pérez", Nickname: "Nico", Position: "Delantero", Shirt: 9, Cohort: 2008})
		require.NoError(t, err)
		require.Equal(t, "p-1", p.ID)
		require.True(t, p.Active)
	})

	t.Run("toggle sends only the flipped flag", func(t *testing.T) {
		server, client := newClient(t)
		server.Handle(http.MethodPut, "/players/p-1", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, map[string]any{"activo": false}, body)
			backendtest.WriteJSON(w, http.StatusOK, map[string]any{"id": "p-1", "nombre": "Nico", "activo": false})
		})

		p, err := client.ToggleActive(ctx, "p-1", true)
		require.NoError(t, err)
		require.False(t, p.Active)
	})

	t.Run("delete and lookup", func(t *testing.T) {
		server, client := newClient(t)
		server.HandleJSON(http.MethodDelete, "/players/p-1", http.StatusOK, map[string]string{"message": "Jugador eliminado"})
		server.HandleJSON(http.MethodGet, "/players/p-1", http.StatusNotFound, map[string]string{"message": "Jugador no encontrado"})

		require.NoError(t, client.Delete(ctx, "p-1"))
		_, err := client.ByID(ctx, "p-1")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
