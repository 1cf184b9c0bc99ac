package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/auth"
	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/limits"
	adminauditsvc "github.com/ncecere/attendance/backend/internal/services/adminaudit"
)

const (
	oidcStatePrefix       = "oidc:state:"
	oidcStateTTL          = 10 * time.Minute
	defaultOIDCReturnPath = "/"

	loginWindow      = 15 * time.Minute
	loginMaxAttempts = 10
)

type oidcStateData struct {
	Nonce    string `json:"nonce"`
	ReturnTo string `json:"return_to"`
}

// Register wires the /auth routes.
func Register(router fiber.Router, container *app.Container) {
	handler := &authHandler{
		auth:     container.Auth,
		redis:    container.Redis,
		cfg:      container.Config.Auth,
		limiter:  container.RateLimiter,
		activity: container.Activity,
		logger:   slog.Default(),
	}

	group := router.Group("/auth")
	group.Get("/methods", handler.listMethods)
	group.Post("/login", handler.loginLocal)
	group.Post("/refresh", handler.refresh)
	group.Post("/logout", handler.logout)
	group.Get("/oidc/start", handler.oidcStart)
	group.Get("/oidc/callback", handler.oidcCallback)
}

type authHandler struct {
	auth     *auth.Service
	redis    *redis.Client
	cfg      config.AuthConfig
	limiter  *limits.RateLimiter
	activity *adminauditsvc.Service
	logger   *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken      string       `json:"access_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	Method           string       `json:"method"`
	User             UserResponse `json:"user"`
	RefreshToken     string       `json:"refresh_token,omitempty"`
}

// UserResponse is the public view of a user account.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	Department  string     `json:"department"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type oidcStartResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

func (h *authHandler) listMethods(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"methods": h.auth.AllowedAuthMethods(),
	})
}

func (h *authHandler) loginLocal(c *fiber.Ctx) error {
	if !h.cfg.Local.Enabled {
		return httputil.WriteError(c, fiber.StatusNotFound, "local authentication disabled")
	}

	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "email and password required")
	}

	ctx := httputil.UserContext(c)
	limitKey := limits.LoginKey(req.Email)
	if err := h.limiter.AllowWindow(ctx, limitKey, loginWindow, loginMaxAttempts); err != nil {
		if errors.Is(err, limits.ErrLimitExceeded) {
			return httputil.WriteError(c, fiber.StatusTooManyRequests, "too many login attempts")
		}
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}

	pair, user, err := h.auth.AuthenticateLocal(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return httputil.WriteError(c, fiber.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, auth.ErrUserDisabled):
			return httputil.WriteError(c, fiber.StatusForbidden, "user disabled")
		default:
			return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
		}
	}
	h.limiter.Reset(ctx, limitKey, loginWindow)

	h.setSessionCookies(c, pair)
	h.recordLogin(c, user, auth.ProviderLocal)

	resp := buildTokenResponse(pair, user, auth.ProviderLocal)
	resp.RefreshToken = pair.RefreshToken
	return c.JSON(resp)
}

func (h *authHandler) refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		token = strings.TrimSpace(c.Cookies(h.cfg.Session.CookieName))
	}
	if token == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "refresh token required")
	}

	pair, user, err := h.auth.Refresh(httputil.UserContext(c), token)
	if err != nil {
		if errors.Is(err, auth.ErrUserDisabled) {
			return httputil.WriteError(c, fiber.StatusForbidden, "user disabled")
		}
		return httputil.WriteError(c, fiber.StatusUnauthorized, "invalid refresh token")
	}

	h.setSessionCookies(c, pair)
	resp := buildTokenResponse(pair, user, "refresh")
	resp.RefreshToken = pair.RefreshToken
	return c.JSON(resp)
}

func (h *authHandler) logout(c *fiber.Ctx) error {
	if token := strings.TrimSpace(c.Cookies(h.cfg.Session.CookieName)); token != "" {
		if userID, err := h.auth.ValidateRefreshToken(token); err == nil {
			h.record(c, userID, adminauditsvc.ActionLogout, nil)
		}
	}
	h.clearSessionCookies(c)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *authHandler) oidcStart(c *fiber.Ctx) error {
	if !h.cfg.OIDC.Enabled {
		return httputil.WriteError(c, fiber.StatusNotFound, "oidc disabled")
	}

	returnTo := sanitizeReturnPath(c.Query("return_to"))

	state, err := auth.GenerateState(32)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	nonce, err := auth.GenerateState(32)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}

	authURL, err := h.auth.StartOIDCAuth(state, nonce)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}

	payload, err := json.Marshal(oidcStateData{Nonce: nonce, ReturnTo: returnTo})
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "failed to encode oidc state")
	}
	if err := h.redis.Set(httputil.UserContext(c), oidcStateKey(state), payload, oidcStateTTL).Err(); err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "failed to persist oidc state")
	}

	return c.JSON(oidcStartResponse{AuthURL: authURL, State: state})
}

func (h *authHandler) oidcCallback(c *fiber.Ctx) error {
	if !h.cfg.OIDC.Enabled {
		return httputil.WriteError(c, fiber.StatusNotFound, "oidc disabled")
	}

	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "state and code required")
	}

	ctx := httputil.UserContext(c)
	key := oidcStateKey(state)
	rawState, err := h.redis.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return redirectOIDC(c, "", fmt.Errorf("invalid or expired state"))
		}
		return redirectOIDC(c, "", fmt.Errorf("failed to validate oidc state: %w", err))
	}

	stateData := oidcStateData{ReturnTo: defaultOIDCReturnPath}
	if err := json.Unmarshal(rawState, &stateData); err != nil {
		return redirectOIDC(c, "", fmt.Errorf("invalid oidc state payload"))
	}

	pair, user, err := h.auth.CompleteOIDCAuth(ctx, code, stateData.Nonce)
	if err != nil {
		h.logger.Warn("oidc login failed", slog.String("error", err.Error()))
		return redirectOIDC(c, stateData.ReturnTo, err)
	}

	h.setSessionCookies(c, pair)
	h.recordLogin(c, user, auth.ProviderOIDC)
	return redirectOIDC(c, stateData.ReturnTo, nil)
}

func (h *authHandler) recordLogin(c *fiber.Ctx, user db.User, method string) {
	h.record(c, uuid.UUID(user.ID.Bytes), adminauditsvc.ActionLogin, map[string]any{
		"method": method,
		"ip":     c.IP(),
	})
}

func (h *authHandler) record(c *fiber.Ctx, userID uuid.UUID, action string, metadata any) {
	if err := h.activity.Record(httputil.UserContext(c), userID, action, "user", userID.String(), metadata); err != nil {
		h.logger.Warn("activity log write failed", slog.String("action", action), slog.String("error", err.Error()))
	}
}

func (h *authHandler) setSessionCookies(c *fiber.Ctx, pair *auth.TokenPair) {
	secure := h.cfg.Session.CookieSecure || strings.EqualFold(c.Protocol(), "https")
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    pair.RefreshToken,
		HTTPOnly: true,
		Secure:   secure,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     accessCookieName(h.cfg.Session.CookieName),
		Value:    pair.AccessToken,
		HTTPOnly: true,
		Secure:   secure,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *authHandler) clearSessionCookies(c *fiber.Ctx) {
	secure := h.cfg.Session.CookieSecure || strings.EqualFold(c.Protocol(), "https")
	for _, name := range []string{h.cfg.Session.CookieName, accessCookieName(h.cfg.Session.CookieName)} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
}

func buildTokenResponse(pair *auth.TokenPair, user db.User, method string) tokenResponse {
	return tokenResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		Method:           method,
		User:             ToUserResponse(user),
	}
}

// ToUserResponse converts a user row for JSON output.
func ToUserResponse(u db.User) UserResponse {
	var lastLogin *time.Time
	if u.LastLoginAt.Valid {
		t := u.LastLoginAt.Time
		lastLogin = &t
	}
	return UserResponse{
		ID:          uuid.UUID(u.ID.Bytes).String(),
		Email:       u.Email,
		Name:        u.Name,
		Role:        string(u.Role),
		Status:      string(u.Status),
		Department:  u.Department,
		CreatedAt:   u.CreatedAt.Time,
		UpdatedAt:   u.UpdatedAt.Time,
		LastLoginAt: lastLogin,
	}
}

func accessCookieName(sessionCookie string) string {
	return sessionCookie + "_access"
}

func oidcStateKey(state string) string {
	return oidcStatePrefix + state
}

// sanitizeReturnPath keeps redirects on this host.
func sanitizeReturnPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || strings.Contains(path, "://") || strings.HasPrefix(path, "//") || strings.Contains(path, "\\") {
		return defaultOIDCReturnPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func redirectOIDC(c *fiber.Ctx, path string, err error) error {
	target := sanitizeReturnPath(path)
	if err != nil {
		target = appendQueryParam(target, "error", err.Error())
	} else {
		target = appendQueryParam(target, "status", "success")
	}
	return c.Redirect(target, fiber.StatusTemporaryRedirect)
}

func appendQueryParam(path string, key, value string) string {
	if key == "" || value == "" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + key + "=" + url.QueryEscape(value)
}
