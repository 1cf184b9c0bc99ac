package admin

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
)

// Register wires the permission-gated /admin API.
func Register(router fiber.Router, container *app.Container) {
	if router == nil || container == nil {
		return
	}
	protected := router.Group("/admin", session.Middleware(container))
	registerAdminUserRoutes(protected, container)
	registerAdminAttendanceRoutes(protected, container)
	registerAdminKPIRoutes(protected, container)
	registerAdminActivityRoutes(protected, container)
	registerAdminReportRoutes(protected, container)
}

// recordActivity writes an activity entry on behalf of the caller. Failures
// are logged and never fail the request.
func recordActivity(c *fiber.Ctx, container *app.Container, action, resourceType, resourceID string, metadata any) {
	identity, ok := session.Identity(c)
	if !ok {
		return
	}
	if err := container.Activity.Record(httputil.UserContext(c), identity.UserID, action, resourceType, resourceID, metadata); err != nil {
		slog.Warn("activity log write failed", slog.String("action", action), slog.String("error", err.Error()))
	}
}
