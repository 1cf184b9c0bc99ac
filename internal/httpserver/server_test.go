package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/testutil"
)

func TestNewRequiresContainer(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestHealthzReportsRedis(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	srv, err := New(env.Container)
	require.NoError(t, err)

	resp, err := srv.App().Test(testutil.NewRequest(t, http.MethodGet, "/healthz", nil, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "attendance", resp.Header.Get("Server"))

	var body struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	testutil.DecodeJSON(t, resp, &body)
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "ok", body.Checks["redis"]["status"])
	require.NotContains(t, body.Checks, "postgres")
}

func TestRoutesMounted(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	srv, err := New(env.Container)
	require.NoError(t, err)
	_, token := env.Login(t, "admin@example.com", db.UserRoleAdmin)

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/auth/methods", "", http.StatusOK},
		{"/me", token, http.StatusOK},
		{"/admin/users", token, http.StatusOK},
		{"/admin/users", "", http.StatusUnauthorized},
		{"/nowhere", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := srv.App().Test(testutil.NewRequest(t, http.MethodGet, tt.path, nil, tt.token))
		require.NoError(t, err)
		require.Equal(t, tt.want, resp.StatusCode, tt.path)
	}
}
