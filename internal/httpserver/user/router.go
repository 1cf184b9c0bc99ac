package user

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
	"github.com/ncecere/attendance/backend/internal/rbac"
)

// Register wires the /me endpoints available to every authenticated user.
func Register(router fiber.Router, container *app.Container) {
	if router == nil || container == nil {
		return
	}

	handler := newHandler(container)

	group := router.Group("/me", session.Middleware(container))
	group.Get("/", handler.profile)

	att := group.Group("/attendance", session.RequirePermission(rbac.PermSelfAttendance))
	att.Get("/today", handler.today)
	att.Post("/check-in", handler.checkIn)
	att.Post("/check-out", handler.checkOut)
	att.Get("/", handler.listAttendance)

	group.Get("/kpi", session.RequirePermission(rbac.PermSelfAttendance), handler.dashboard)
}
