package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BerryBytes/portalctl/cmd/admin"
	"github.com/BerryBytes/portalctl/cmd/auth"
	"github.com/BerryBytes/portalctl/internal/adminapi"
	"github.com/BerryBytes/portalctl/internal/notify"
	"github.com/BerryBytes/portalctl/internal/session"
	"github.com/BerryBytes/portalctl/internal/storage"
	"github.com/BerryBytes/portalctl/models"
	promptutils "github.com/BerryBytes/portalctl/utils/prompt"
	mock_prompt "github.com/BerryBytes/portalctl/utils/prompt/mocks"
	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

func setupTest(t *testing.T, loggedIn bool, handler http.HandlerFunc) (*cobra.Command, *session.Store, *[]recorded) {
	cmd, store, requests, _ := setupWithPrompter(t, loggedIn, handler)
	return cmd, store, requests
}

func setupWithPrompter(t *testing.T, loggedIn bool, handler http.HandlerFunc) (*cobra.Command, *session.Store, *[]recorded, *mock_prompt.MockPrompter) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	prompter := mock_prompt.NewMockPrompter(ctrl)

	var requests []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store := session.NewStore(storage.NewMemoryScope(0), storage.NewMemoryScope(0), session.AdminKeys())
	if loggedIn {
		require.NoError(t, store.WriteCredentials(context.Background(), &models.CredentialSet{
			AccessToken:  "admin-token",
			AccessExpiry: time.Now().Add(time.Hour),
		}))
	}
	client := adminapi.NewClient(srv.URL, srv.Client(), store, notify.NewLocal(), zerolog.Nop())

	cmd := admin.NewAdminCmd(admin.AdminDependencies{
		Auth: auth.AuthDependencies{
			Session: func(context.Context) (*auth.Session, error) {
				return nil, errors.New("not used")
			},
			Prompter: prompter,
		},
		API: func(context.Context) (admin.Requester, error) { return client, nil },
	})
	return cmd, store, &requests, prompter
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewAdminCmd_Subcommands(t *testing.T) {
	cmd, _, _ := setupTest(t, true, func(http.ResponseWriter, *http.Request) {})

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"login", "logout", "status", "watch", "list", "get", "request"}, names)
}

func TestListCmd(t *testing.T) {
	cmd, _, requests := setupTest(t, true, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{{"id": "7"}}})
	})

	out, err := execute(cmd, "list", "withdrawals", "--status", "pending", "--from", "2026-01-01", "--limit", "10")
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/admin/withdrawals", got.path)
	assert.Equal(t, "from=2026-01-01&limit=10&status=pending", got.query)
	assert.Contains(t, out, "\"id\": \"7\"")
}

func TestListCmd_SelectsResource(t *testing.T) {
	cmd, _, requests, prompter := setupWithPrompter(t, true, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	prompter.EXPECT().PromptForSelection("Resource", admin.Resources).Return("banks", nil)

	_, err := execute(cmd, "list")
	require.NoError(t, err)
	require.Len(t, *requests, 1)
	assert.Equal(t, "/admin/banks", (*requests)[0].path)
}

func TestListCmd_SelectionInterrupted(t *testing.T) {
	cmd, _, requests, prompter := setupWithPrompter(t, true, func(http.ResponseWriter, *http.Request) {})
	prompter.EXPECT().PromptForSelection("Resource", gomock.Any()).Return("", promptutils.ErrInterrupted)

	_, err := execute(cmd, "list")
	require.NoError(t, err)
	assert.Empty(t, *requests)
}

func TestRequestCmd_DeleteConfirmation(t *testing.T) {
	tests := []struct {
		name      string
		confirm   bool
		expectOut string
		expectReq int
	}{
		{name: "confirmed", confirm: true, expectOut: "OK", expectReq: 1},
		{name: "declined", confirm: false, expectOut: "Aborted.", expectReq: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, requests, prompter := setupWithPrompter(t, true, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			prompter.EXPECT().PromptForConfirmation("Delete /admin/users/9?").Return(tt.confirm)

			out, err := execute(cmd, "request", "delete", "/admin/users/9")
			require.NoError(t, err)
			assert.Contains(t, out, tt.expectOut)
			assert.Len(t, *requests, tt.expectReq)
		})
	}
}

func TestListCmd_InvalidDate(t *testing.T) {
	cmd, _, requests := setupTest(t, true, func(http.ResponseWriter, *http.Request) {})

	_, err := execute(cmd, "list", "users", "--to", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --to date")
	assert.Empty(t, *requests)
}

func TestGetCmd(t *testing.T) {
	cmd, _, requests := setupTest(t, true, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"42","username":"alice"}`))
	})

	out, err := execute(cmd, "get", "users", "42")
	require.NoError(t, err)
	assert.Equal(t, "/admin/users/42", (*requests)[0].path)
	assert.Contains(t, out, "\"username\": \"alice\"")
}

func TestRequestCmd(t *testing.T) {
	tests := []struct {
		name        string
		loggedIn    bool
		args        []string
		status      int
		response    string
		expectError string
		expectOut   string
		expectReq   *recorded
	}{
		{
			name:      "post with body and query",
			loggedIn:  true,
			args:      []string{"request", "post", "admin/withdrawals/42/approve", "-d", `{"note":"ok"}`, "-q", "notify=1"},
			status:    http.StatusOK,
			response:  `{"status":"approved"}`,
			expectOut: "\"status\": \"approved\"",
			expectReq: &recorded{method: http.MethodPost, path: "/admin/withdrawals/42/approve", query: "notify=1", body: `{"note":"ok"}`},
		},
		{
			name:      "empty response",
			loggedIn:  true,
			args:      []string{"request", "DELETE", "/admin/users/9", "--yes"},
			status:    http.StatusNoContent,
			expectOut: "OK",
			expectReq: &recorded{method: http.MethodDelete, path: "/admin/users/9"},
		},
		{
			name:        "invalid json",
			loggedIn:    true,
			args:        []string{"request", "POST", "/admin/users", "-d", "{"},
			expectError: "--data is not valid JSON",
		},
		{
			name:        "invalid query",
			loggedIn:    true,
			args:        []string{"request", "GET", "/admin/users", "-q", "oops"},
			expectError: "invalid query",
		},
		{
			name:        "not logged in",
			args:        []string{"request", "GET", "/admin/users"},
			expectError: "admin login",
		},
		{
			name:        "server error",
			loggedIn:    true,
			args:        []string{"request", "GET", "/admin/users"},
			status:      http.StatusBadRequest,
			response:    `{"message":"bad filter"}`,
			expectError: "bad filter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, requests := setupTest(t, tt.loggedIn, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.response))
			})

			out, err := execute(cmd, tt.args...)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
			} else {
				require.NoError(t, err)
				assert.Contains(t, out, tt.expectOut)
			}

			if tt.expectReq != nil {
				require.Len(t, *requests, 1)
				assert.Equal(t, *tt.expectReq, (*requests)[0])
			}
		})
	}
}

func TestRequestCmd_RejectedTokenClearsSession(t *testing.T) {
	cmd, store, _ := setupTest(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := execute(cmd, "request", "GET", "/admin/users")
	require.ErrorIs(t, err, adminapi.ErrUnauthorized)

	creds, err := store.ReadCredentials(context.Background())
	require.NoError(t, err)
	assert.False(t, creds.HasAccess())
}
