package session

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/auth"
	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/rbac"
	"github.com/ncecere/attendance/backend/internal/requestctx"
)

const authHeaderPrefix = "bearer "

// Middleware authenticates the caller from a bearer access token, falling
// back to the access cookie, and stores the identity on the request.
func Middleware(container *app.Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearer(c)
		if token == "" {
			token = strings.TrimSpace(c.Cookies(accessCookieName(container.Config.Auth.Session.CookieName)))
		}
		if token == "" {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
		}

		user, err := container.Auth.AuthorizeAccessToken(httputil.UserContext(c), token)
		if err != nil {
			if errors.Is(err, auth.ErrUserDisabled) {
				return httputil.WriteError(c, fiber.StatusForbidden, "user disabled")
			}
			return httputil.WriteError(c, fiber.StatusUnauthorized, "invalid or expired token")
		}
		if !user.ID.Valid {
			return httputil.WriteError(c, fiber.StatusInternalServerError, "invalid user identifier")
		}

		identity := identityFromUser(user)
		c.SetUserContext(requestctx.WithIdentity(httputil.UserContext(c), identity))
		c.Locals(requestctx.FiberLocalsKey(), identity)
		return c.Next()
	}
}

// RequirePermission rejects callers whose role lacks perm. It must run after Middleware.
func RequirePermission(perm rbac.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := Identity(c)
		if !ok {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
		}
		if err := rbac.Ensure(identity.Role, perm); err != nil {
			return httputil.WriteError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// Identity returns the authenticated caller attached by Middleware.
func Identity(c *fiber.Ctx) (*requestctx.Identity, bool) {
	if id, ok := c.Locals(requestctx.FiberLocalsKey()).(*requestctx.Identity); ok && id != nil {
		return id, true
	}
	return requestctx.FromContext(httputil.UserContext(c))
}

func identityFromUser(user db.User) *requestctx.Identity {
	return &requestctx.Identity{
		UserID:     uuid.UUID(user.ID.Bytes),
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		Department: user.Department,
	}
}

func extractBearer(c *fiber.Ctx) string {
	raw := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(raw), authHeaderPrefix) {
		return ""
	}
	return strings.TrimSpace(raw[len(authHeaderPrefix):])
}
