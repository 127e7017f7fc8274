package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-mvp-voting/admin"
	"github.com/jrsteele09/go-mvp-voting/backend/backendtest"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestClient_Users(t *testing.T) {
	ctx := context.Background()
	server := backendtest.NewServer(t)
	client := admin.NewClient(server.Client(t))

	server.HandleJSON(http.MethodGet, admin.RouteUsers, http.StatusOK, []map[string]any{
		{"_id": "u-1", "email": "ana@club.test", "nombre": "Ana", "activo": true, "votosRealizados": 4},
		{"id": "u-2", "email": "beto@club.test", "nombre": "Beto", "activo": false},
	})
	server.HandleJSON(http.MethodPut, "/users/u-2/activate", http.StatusOK, map[string]any{"_id": "u-2", "activo": true})
	server.HandleJSON(http.MethodPut, "/users/u-1/deactivate", http.StatusOK, map[string]any{"_id": "u-1", "activo": false})

	list, err := client.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 4, list[0].VotesCast)
	require.Equal(t, "u-2", list[1].ID)

	activated, err := client.ActivateUser(ctx, "u-2")
	require.NoError(t, err)
	require.True(t, activated.Active)

	deactivated, err := client.DeactivateUser(ctx, "u-1")
	require.NoError(t, err)
	require.False(t, deactivated.Active)

	t.Run("non admin is forbidden", func(t *testing.T) {
		server.HandleJSON(http.MethodGet, admin.RouteUsers, http.StatusForbidden, map[string]string{"message": "Acceso denegado"})
		_, err := client.ListUsers(ctx)
		require.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestClient_ChangePassword(t *testing.T) {
	ctx := context.Background()
	server := backendtest.NewServer(t)
	client := admin.NewClient(server.Client(t))
	server.Handle(http.MethodPut, admin.RouteChangePassword, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "nueva-clave", body["newPassword"])
		backendtest.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	require.ErrorIs(t, client.ChangePassword(ctx, "corta"), apperrors.ErrInvalidRequest)
	require.Empty(t, server.Requests())

	require.NoError(t, client.ChangePassword(ctx, "nueva-clave"))
}
