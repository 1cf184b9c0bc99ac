package user

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
	kpisvc "github.com/ncecere/attendance/backend/internal/services/kpi"
)

// dashboard returns the caller's own dashboard for the requested period.
func (h *userHandler) dashboard(c *fiber.Ctx) error {
	identity, ok := session.Identity(c)
	if !ok {
		return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
	}
	q := httputil.ReadRangeQuery(c)
	dash, err := h.kpi.Dashboard(httputil.UserContext(c), kpisvc.DashboardParams{
		Period: q.Period,
		Start:  q.Start,
		End:    q.End,
		UserID: identity.UserID,
		Now:    h.container.Clock(),
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
}
