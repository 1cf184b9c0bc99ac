package user

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/httpserver/attendancedto"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
	adminauditsvc "github.com/ncecere/attendance/backend/internal/services/adminaudit"
	attendancesvc "github.com/ncecere/attendance/backend/internal/services/attendance"
)

type checkInRequest struct {
	Lat  *float64 `json:"lat" validate:"required_with=Lng,omitempty,latitude"`
	Lng  *float64 `json:"lng" validate:"required_with=Lat,omitempty,longitude"`
	Note string   `json:"note" validate:"max=500"`
}

type checkOutRequest struct {
	Lat *float64 `json:"lat" validate:"required_with=Lng,omitempty,latitude"`
	Lng *float64 `json:"lng" validate:"required_with=Lat,omitempty,longitude"`
}

func (h *userHandler) today(c *fiber.Ctx) error {
	identity, ok := session.Identity(c)
	if !ok {
		return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
	}
	rec, err := h.attendance.Today(httputil.UserContext(c), identity.UserID)
	if err != nil {
		return attendancedto.WriteError(c, err)
	}
	resp := fiber.Map{
		"work_date":   attendancesvc.WorkDate(h.container.Clock(), h.attendance.Location()).Format("2006-01-02"),
		"checked_in":  rec != nil,
		"checked_out": rec != nil && rec.CheckOutAt != nil,
		"record":      nil,
	}
	if rec != nil {
		resp["record"] = attendancedto.FromRecord(*rec)
	}
	return c.JSON(resp)
}

func (h *userHandler) checkIn(c *fiber.Ctx) error {
	identity, ok := session.Identity(c)
	if !ok {
		return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
	}
	var req checkInRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.container.Validator.Struct(req); err != nil {
		return httputil.WriteValidationError(c, err)
	}

	rec, err := h.attendance.CheckIn(httputil.UserContext(c), attendancesvc.CheckInParams{
		UserID: identity.UserID,
		Lat:    req.Lat,
		Lng:    req.Lng,
		Note:   req.Note,
		At:     h.container.Clock(),
	})
	if err != nil {
		return attendancedto.WriteError(c, err)
	}

	h.record(c, identity, adminauditsvc.ActionCheckIn, rec.ID.String(), fiber.Map{
		"status":  rec.Status,
		"address": rec.CheckInAddress,
	})
	return c.Status(fiber.StatusCreated).JSON(attendancedto.FromRecord(rec))
}

func (h *userHandler) checkOut(c *fiber.Ctx) error {
	identity, ok := session.Identity(c)
	if !ok {
		return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
	}
	var req checkOutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.container.Validator.Struct(req); err != nil {
		return httputil.WriteValidationError(c, err)
	}

	rec, err := h.attendance.CheckOut(httputil.UserContext(c), attendancesvc.CheckOutParams{
		UserID: identity.UserID,
		Lat:    req.Lat,
		Lng:    req.Lng,
		At:     h.container.Clock(),
	})
	if err != nil {
		return attendancedto.WriteError(c, err)
	}

	h.record(c, identity, adminauditsvc.ActionCheckOut, rec.ID.String(), fiber.Map{
		"worked_minutes": int64(rec.Worked().Minutes()),
		"address":        rec.CheckOutAddress,
	})
	return c.JSON(attendancedto.FromRecord(rec))
}

func (h *userHandler) listAttendance(c *fiber.Ctx) error {
	identity, ok := session.Identity(c)
	if !ok {
		return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
	}
	r, kind, err := httputil.ReadRangeQuery(c).Resolve(h.container.Clock())
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	limit, offset := httputil.Pagination(c, defaultPageSize)

	records, total, err := h.attendance.List(httputil.UserContext(c), attendancesvc.ListFilter{
		UserID: identity.UserID,
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
}
