package admin

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/httpserver/attendancedto"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
	"github.com/ncecere/attendance/backend/internal/rbac"
	adminauditsvc "github.com/ncecere/attendance/backend/internal/services/adminaudit"
	attendancesvc "github.com/ncecere/attendance/backend/internal/services/attendance"
)

type updateAttendanceRequest struct {
	Status        *string    `json:"status" validate:"omitempty,attendance_status"`
	Note          *string    `json:"note" validate:"omitempty,max=500"`
	CheckOutAt    *time.Time `json:"check_out_at"`
	ClearCheckOut bool       `json:"clear_check_out"`
}

func registerAdminAttendanceRoutes(router fiber.Router, container *app.Container) {
	router.Get("/attendance", session.RequirePermission(rbac.PermAttendanceReadAll), func(c *fiber.Ctx) error {
		userID, err := httputil.QueryUUID(c, "user_id")
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
		}
		r, kind, err := httputil.ReadRangeQuery(c).Resolve(container.Clock())
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
		}
		limit, offset := httputil.Pagination(c, 100)

		records, total, err := container.Attendance.List(httputil.UserContext(c), attendancesvc.ListFilter{
			UserID: userID,
			Range:  r,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return attendancedto.WriteError(c, err)
		}
		return c.JSON(fiber.Map{
			"period":  kind,
			"start":   r.StartString(),
			"end":     r.EndString(),
			"records": attendancedto.FromRecords(records),
			"total":   total,
			"limit":   limit,
			"offset":  offset,
		})
	})

	router.Get("/attendance/:recordID", session.RequirePermission(rbac.PermAttendanceReadAll), func(c *fiber.Ctx) error {
		id, err := httputil.ParamUUID(c, "recordID")
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
		}
		rec, err := container.Attendance.Get(httputil.UserContext(c), id)
		if err != nil {
			return attendancedto.WriteError(c, err)
		}
		return c.JSON(attendancedto.FromRecord(rec))
	})

	router.Patch("/attendance/:recordID", session.RequirePermission(rbac.PermAttendanceEdit), func(c *fiber.Ctx) error {
		id, err := httputil.ParamUUID(c, "recordID")
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
		}
		var req updateAttendanceRequest
		if err := c.BodyParser(&req); err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
		}
		if err := container.Validator.Struct(req); err != nil {
			return httputil.WriteValidationError(c, err)
		}
		if req.ClearCheckOut && req.CheckOutAt != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, "check_out_at and clear_check_out are mutually exclusive")
		}

		rec, err := container.Attendance.Update(httputil.UserContext(c), id, attendancesvc.UpdateParams{
			Status:        req.Status,
			Note:          req.Note,
			CheckOutAt:    req.CheckOutAt,
			ClearCheckOut: req.ClearCheckOut,
		})
		if err != nil {
			return attendancedto.WriteError(c, err)
		}
		recordActivity(c, container, adminauditsvc.ActionAttendanceUpdate, "attendance", rec.ID.String(), fiber.Map{
			"user_id":         rec.UserID,
			"status":          rec.Status,
			"check_out_at":    rec.CheckOutAt,
			"clear_check_out": req.ClearCheckOut,
		})
		return c.JSON(attendancedto.FromRecord(rec))
	})
}
