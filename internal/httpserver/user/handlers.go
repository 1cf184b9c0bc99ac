package user

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
	"github.com/ncecere/attendance/backend/internal/rbac"
	"github.com/ncecere/attendance/backend/internal/requestctx"
	adminauditsvc "github.com/ncecere/attendance/backend/internal/services/adminaudit"
	adminusersvc "github.com/ncecere/attendance/backend/internal/services/adminuser"
	attendancesvc "github.com/ncecere/attendance/backend/internal/services/attendance"
	kpisvc "github.com/ncecere/attendance/backend/internal/services/kpi"
)

const defaultPageSize = 50

type userHandler struct {
	container  *app.Container
	users      *adminusersvc.Service
	attendance *attendancesvc.Service
	kpi        *kpisvc.Service
	activity   *adminauditsvc.Service
	logger     *slog.Logger
}

func newHandler(container *app.Container) *userHandler {
	return &userHandler{
		container:  container,
		users:      container.Users,
		attendance: container.Attendance,
		kpi:        container.KPI,
		activity:   container.Activity,
		logger:     slog.Default(),
	}
}

type profileResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Department  string     `json:"department"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Permissions []string   `json:"permissions"`
	Timezone    string     `json:"timezone"`
	WorkStart   string     `json:"work_start"`
	WorkEnd     string     `json:"work_end"`
}

func (h *userHandler) profile(c *fiber.Ctx) error {
	identity, ok := session.Identity(c)
	if !ok {
		return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
	}
	user, err := h.users.Get(httputil.UserContext(c), identity.UserID)
	if err != nil {
		if errors.Is(err, adminusersvc.ErrNotFound) {
			return httputil.WriteError(c, fiber.StatusNotFound, err.Error())
		}
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}

	perms := rbac.Permissions(user.Role)
	permissions := make([]string, 0, len(perms))
	for _, p := range perms {
		permissions = append(permissions, string(p))
	}
	cfg := h.container.Config.Attendance
	return c.JSON(profileResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		Name:        user.Name,
		Role:        string(user.Role),
		Department:  user.Department,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
		Permissions: permissions,
		Timezone:    h.attendance.Location().String(),
		WorkStart:   cfg.WorkStart,
		WorkEnd:     cfg.WorkEnd,
	})
}

// record writes an activity entry; failures are logged and never fail the request.
func (h *userHandler) record(c *fiber.Ctx, identity *requestctx.Identity, action, resourceID string, metadata any) {
	if err := h.activity.Record(httputil.UserContext(c), identity.UserID, action, "attendance", resourceID, metadata); err != nil {
		h.logger.Warn("activity log write failed", slog.String("action", action), slog.String("error", err.Error()))
	}
}
