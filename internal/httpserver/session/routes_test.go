package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/rbac"
	"github.com/ncecere/attendance/backend/internal/requestctx"
	adminauditsvc "github.com/ncecere/attendance/backend/internal/services/adminaudit"
	"github.com/ncecere/attendance/backend/internal/testutil"
)

func newAuthApp(t *testing.T) (*fiber.App, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t, nil)
	app := fiber.New()
	Register(app, env.Container)

	protected := app.Group("/probe", Middleware(env.Container))
	protected.Get("/", func(c *fiber.Ctx) error {
		id, ok := Identity(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		ctxID, _ := requestctx.FromContext(c.UserContext())
		return c.JSON(fiber.Map{"email": id.Email, "ctx_email": ctxID.Email})
	})
	protected.Get("/admin", RequirePermission(rbac.PermUsersManage), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, env
}

func addLocalUser(t *testing.T, env *testutil.Env, email, password string) db.User {
	t.Helper()
	user := env.Store.AddUser(email, "Ana", db.UserRoleEmployee)
	require.NoError(t, env.Container.Auth.UpsertLocalPassword(context.Background(), uuid.UUID(user.ID.Bytes), email, password))
	return user
}

func TestMethodsListsLocal(t *testing.T) {
	app, _ := newAuthApp(t)
	resp, err := app.Test(testutil.NewRequest(t, http.MethodGet, "/auth/methods", nil, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Methods []string `json:"methods"`
	}
	testutil.DecodeJSON(t, resp, &body)
	require.Equal(t, []string{"local"}, body.Methods)
}

func TestLoginSetsCookiesAndRecordsActivity(t *testing.T) {
	app, env := newAuthApp(t)
	user := addLocalUser(t, env, "ana@example.com", "correct horse")

	resp, err := app.Test(testutil.NewRequest(t, http.MethodPost, "/auth/login",
		loginRequest{Email: " ANA@example.com ", Password: "correct horse"}, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	names := map[string]bool{}
	for _, ck := range resp.Cookies() {
		names[ck.Name] = ck.HttpOnly && ck.Value != ""
	}
	require.True(t, names[testutil.CookieName])
	require.True(t, names[testutil.CookieName+"_access"])

	var body tokenResponse
	testutil.DecodeJSON(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	require.NotEmpty(t, body.RefreshToken)
	require.Equal(t, "local", body.Method)
	require.Equal(t, "ana@example.com", body.User.Email)
	require.Equal(t, "employee", body.User.Role)

	logs := env.Store.Activity()
	require.Len(t, logs, 1)
	require.Equal(t, adminauditsvc.ActionLogin, logs[0].Action)
	require.Equal(t, user.ID, logs[0].UserID)

	probe := testutil.NewRequest(t, http.MethodGet, "/probe", nil, body.AccessToken)
	resp, err = app.Test(probe)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var who map[string]string
	testutil.DecodeJSON(t, resp, &who)
	require.Equal(t, "ana@example.com", who["email"])
	require.Equal(t, "ana@example.com", who["ctx_email"])
}

func TestLoginRejectsBadInput(t *testing.T) {
	app, env := newAuthApp(t)
	addLocalUser(t, env, "ana@example.com", "correct horse")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing password", loginRequest{Email: "ana@example.com"}, http.StatusBadRequest},
		{"wrong password", loginRequest{Email: "ana@example.com", Password: "wrong horse"}, http.StatusUnauthorized},
		{"unknown user", loginRequest{Email: "bob@example.com", Password: "whatever1"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(testutil.NewRequest(t, http.MethodPost, "/auth/login", tt.body, ""))
			require.NoError(t, err)
			require.Equal(t, tt.want, resp.StatusCode)
		})
	}
	require.Empty(t, env.Store.Activity())
}

func TestLoginDisabledUser(t *testing.T) {
	app, env := newAuthApp(t)
	user := addLocalUser(t, env, "ana@example.com", "correct horse")
	env.Store.SetStatus(uuid.UUID(user.ID.Bytes), db.UserStatusDisabled)

	resp, err := app.Test(testutil.NewRequest(t, http.MethodPost, "/auth/login",
		loginRequest{Email: "ana@example.com", Password: "correct horse"}, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoginThrottlesRepeatedFailures(t *testing.T) {
	app, env := newAuthApp(t)
	addLocalUser(t, env, "ana@example.com", "correct horse")

	for i := 0; i < loginMaxAttempts; i++ {
		resp, err := app.Test(testutil.NewRequest(t, http.MethodPost, "/auth/login",
			loginRequest{Email: "ana@example.com", Password: "wrong horse"}, ""))
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, err := app.Test(testutil.NewRequest(t, http.MethodPost, "/auth/login",
		loginRequest{Email: "ana@example.com", Password: "correct horse"}, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRefreshFromBodyAndCookie(t *testing.T) {
	app, env := newAuthApp(t)
	user := env.Store.AddUser("ana@example.com", "Ana", db.UserRoleManager)
	pair, err := env.Container.Auth.IssueTokenPair(user)
	require.NoError(t, err)

	resp, err := app.Test(testutil.NewRequest(t, http.MethodPost, "/auth/refresh",
		refreshRequest{RefreshToken: pair.RefreshToken}, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req := testutil.NewRequest(t, http.MethodPost, "/auth/refresh", nil, "")
	req.AddCookie(&http.Cookie{Name: testutil.CookieName, Value: pair.RefreshToken})
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// An access token is not accepted as a refresh token.
	resp, err = app.Test(testutil.NewRequest(t, http.MethodPost, "/auth/refresh",
		refreshRequest{RefreshToken: pair.AccessToken}, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(testutil.NewRequest(t, http.MethodPost, "/auth/refresh", nil, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutClearsCookies(t *testing.T) {
	app, env := newAuthApp(t)
	user := env.Store.AddUser("ana@example.com", "Ana", db.UserRoleEmployee)
	pair, err := env.Container.Auth.IssueTokenPair(user)
	require.NoError(t, err)

	req := testutil.NewRequest(t, http.MethodPost, "/auth/logout", nil, "")
	req.AddCookie(&http.Cookie{Name: testutil.CookieName, Value: pair.RefreshToken})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	for _, ck := range resp.Cookies() {
		require.Empty(t, ck.Value)
	}

	logs := env.Store.Activity()
	require.Len(t, logs, 1)
	require.Equal(t, adminauditsvc.ActionLogout, logs[0].Action)
}

func TestMiddlewareRejectsMissingAndDisabled(t *testing.T) {
	app, env := newAuthApp(t)

	resp, err := app.Test(testutil.NewRequest(t, http.MethodGet, "/probe", nil, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(testutil.NewRequest(t, http.MethodGet, "/probe", nil, "not-a-token"))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	user, token := env.Login(t, "ana@example.com", db.UserRoleEmployee)
	env.Store.SetStatus(uuid.UUID(user.ID.Bytes), db.UserStatusDisabled)
	resp, err = app.Test(testutil.NewRequest(t, http.MethodGet, "/probe", nil, token))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMiddlewareAcceptsAccessCookie(t *testing.T) {
	app, env := newAuthApp(t)
	_, token := env.Login(t, "ana@example.com", db.UserRoleEmployee)

	req := testutil.NewRequest(t, http.MethodGet, "/probe", nil, "")
	req.AddCookie(&http.Cookie{Name: testutil.CookieName + "_access", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequirePermission(t *testing.T) {
	app, env := newAuthApp(t)
	_, employee := env.Login(t, "emp@example.com", db.UserRoleEmployee)
	_, admin := env.Login(t, "admin@example.com", db.UserRoleAdmin)

	resp, err := app.Test(testutil.NewRequest(t, http.MethodGet, "/probe/admin", nil, employee))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(testutil.NewRequest(t, http.MethodGet, "/probe/admin", nil, admin))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestOIDCDisabled(t *testing.T) {
	app, _ := newAuthApp(t)
	for _, path := range []string{"/auth/oidc/start", "/auth/oidc/callback?state=a&code=b"} {
		resp, err := app.Test(testutil.NewRequest(t, http.MethodGet, path, nil, ""))
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestSanitizeReturnPath(t *testing.T) {
	tests := map[string]string{
		"":                         "/",
		"dashboard":                "/dashboard",
		"/me/attendance?week=1":    "/me/attendance?week=1",
		"https://evil.example/x":   "/",
		"//evil.example":           "/",
		"/\\evil.example":          "/",
		"javascript://alert(1)":    "/",
		"  /admin/users  ":         "/admin/users",
	}
	for in, want := range tests {
		require.Equal(t, want, sanitizeReturnPath(in), in)
	}
	require.Equal(t, "/x?a=1&status=success", appendQueryParam("/x?a=1", "status", "success"))
	require.Equal(t, "/x?error=bad+state", appendQueryParam("/x", "error", "bad state"))
}
