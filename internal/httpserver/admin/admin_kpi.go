package admin

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
	"github.com/ncecere/attendance/backend/internal/rbac"
	kpisvc "github.com/ncecere/attendance/backend/internal/services/kpi"
)

func registerAdminKPIRoutes(router fiber.Router, container *app.Container) {
	router.Get("/kpi/dashboard", session.RequirePermission(rbac.PermKPIRead), func(c *fiber.Ctx) error {
		userID, err := httputil.QueryUUID(c, "user_id")
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
		}
		q := httputil.ReadRangeQuery(c)
		dash, err := container.KPI.Dashboard(httputil.UserContext(c), kpisvc.DashboardParams{
			Period: q.Period,
			Start:  q.Start,
			End:    q.End,
			UserID: userID,
			Now:    container.Clock(),
		})
		if err != nil {
			switch {
			case httputil.IsRangeError(err):
				return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
			case errors.Is(err, kpisvc.ErrServiceUnavailable):
				return httputil.WriteError(c, fiber.StatusServiceUnavailable, err.Error())
			default:
				return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
			}
		}
		return c.JSON(dash)
	})
}
