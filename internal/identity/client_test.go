package identity_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BerryBytes/portalctl/internal/identity"
	"github.com/BerryBytes/portalctl/internal/session"
	"github.com/BerryBytes/portalctl/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *identity.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return identity.NewClient(srv.URL+"/", srv.Client(), zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Login(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Wrong username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"token":        "t1",
			"accessExpiry": 1772366400000,
			"refreshToken": "r1",
			"profile": map[string]any{
				"user":        map[string]any{"id": "u1", "username": req.Username},
				"application": map[string]any{"id": "a1", "name": "Portal"},
			},
		})
	})

	grant, err := client.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "t1", grant.AccessToken)
	assert.Equal(t, "r1", grant.RefreshToken)
	assert.True(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Equal(grant.AccessExpiry))
	assert.Equal(t, "alice", grant.Identity.User.Username)
	assert.Equal(t, "Portal", grant.Identity.Application.Name)

	_, err = client.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "nope"})
	var apiErr *identity.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Wrong username or password", apiErr.Message)
	assert.NotErrorIs(t, err, session.ErrInvalidToken)
}

func TestClient_Refresh(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refreshToken"] != "r1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "refresh token revoked"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"token":        "t2",
			"accessExpiry": "2026-03-01T13:00:00Z",
		})
	})

	grant, err := client.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "t2", grant.AccessToken)
	assert.Empty(t, grant.RefreshToken)
	assert.Equal(t, 13, grant.AccessExpiry.UTC().Hour())

	_, err = client.Refresh(context.Background(), "stale")
	var apiErr *identity.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClient_Profile(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        any
		wantInvalid bool
		wantErr     bool
		wantUser    string
	}{
		{
			name:     "TopLevel",
			status:   http.StatusOK,
			body:     map[string]any{"success": true, "user": map[string]any{"id": "u1", "username": "alice"}},
			wantUser: "alice",
		},
		{
			name:     "DataEnvelope",
			status:   http.StatusOK,
			body:     map[string]any{"success": true, "data": map[string]any{"user": map[string]any{"id": "u1", "username": "bob"}}},
			wantUser: "bob",
		},
		{
			name:        "InvalidTokenMessage",
			status:      http.StatusOK,
			body:        map[string]any{"success": false, "message": "Invalid token"},
			wantErr:     true,
			wantInvalid: true,
		},
		{
			name:        "Unauthorized",
			status:      http.StatusUnauthorized,
			body:        map[string]any{"success": false},
			wantErr:     true,
			wantInvalid: true,
		},
		{
			name:    "OtherFailure",
			status:  http.StatusOK,
			body:    map[string]any{"success": false, "message": "database unavailable"},
			wantErr: true,
		},
		{
			name:    "ServerError",
			status:  http.StatusBadGateway,
			body:    "upstream down",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/profile", r.URL.Path)
				assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
				writeJSON(w, tt.status, tt.body)
			})

			id, err := client.Profile(context.Background(), "t1")
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantUser, id.User.Username)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantInvalid, errors.Is(err, session.ErrInvalidToken))
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := identity.NewClient(srv.URL, nil, zerolog.Nop())

	_, err := client.Profile(context.Background(), "t1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrInvalidToken)
}

func TestAdminAPI(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/login":
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"token":   "a1",
				"admin":   map[string]any{"id": "1", "username": "root", "role": "owner"},
			})
		case "/admin/info":
			assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{
				"success":       true,
				"servers":       map[string]any{"maintenance": true},
				"applications":  map[string]any{"total": 4, "active": 3},
				"notifications": map[string]any{"pending_withdrawals": 2},
			})
		default:
			http.NotFound(w, r)
		}
	})
	admin := client.Admin()
	ctx := context.Background()

	grant, err := admin.Login(ctx, models.LoginRequest{Username: "root", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a1", grant.AccessToken)
	assert.True(t, grant.AccessExpiry.IsZero())
	assert.Equal(t, "owner", grant.Identity.Admin.Role)

	info, err := admin.Profile(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, info.Servers.Maintenance)
	assert.Equal(t, 3, info.Applications.Active)
	assert.Equal(t, 2, info.Notifications.PendingWithdrawals)

	_, err = admin.Refresh(ctx, "anything")
	assert.ErrorIs(t, err, identity.ErrRefreshUnsupported)
}
