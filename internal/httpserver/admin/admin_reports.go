package admin

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
	"github.com/ncecere/attendance/backend/internal/rbac"
	adminauditsvc "github.com/ncecere/attendance/backend/internal/services/adminaudit"
	reportsvc "github.com/ncecere/attendance/backend/internal/services/reports"
)

type exportRequest struct {
	Period string `json:"period"`
	Start  string `json:"start"`
	End    string `json:"end"`
	UserID string `json:"user_id" validate:"omitempty,uuid"`
}

func registerAdminReportRoutes(router fiber.Router, container *app.Container) {
	group := router.Group("/reports", session.RequirePermission(rbac.PermReportsExport))

	group.Post("/", func(c *fiber.Ctx) error {
		identity, ok := session.Identity(c)
		if !ok {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
		}
		q := httputil.ReadRangeQuery(c)
		req := exportRequest{Period: q.Period, Start: q.Start, End: q.End, UserID: strings.TrimSpace(c.Query("user_id"))}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
			}
		}
		if err := container.Validator.Struct(req); err != nil {
			return httputil.WriteValidationError(c, err)
		}
		var userID uuid.UUID
		if req.UserID != "" {
			userID = uuid.MustParse(req.UserID)
		}

		export, err := container.Reports.Export(httputil.UserContext(c), reportsvc.ExportParams{
			RequestedBy: identity.UserID,
			UserID:      userID,
			Period:      req.Period,
			Start:       req.Start,
			End:         req.End,
			Now:         container.Clock(),
		})
		if err != nil {
			return writeReportError(c, err)
		}
		recordActivity(c, container, adminauditsvc.ActionReportExport, "report", export.ID.String(), fiber.Map{
			"period":    export.PeriodKind,
			"rows":      export.RowCount,
			"truncated": export.Truncated,
		})
		return c.Status(fiber.StatusCreated).JSON(export)
	})

	group.Get("/", func(c *fiber.Ctx) error {
		limit, offset := httputil.Pagination(c, 50)
		exports, err := container.Reports.List(httputil.UserContext(c), limit, offset)
		if err != nil {
			return writeReportError(c, err)
		}
		if exports == nil {
			exports = []reportsvc.Export{}
		}
		return c.JSON(fiber.Map{
			"exports": exports,
			"limit":   limit,
			"offset":  offset,
		})
	})

	group.Get("/:exportID/download", func(c *fiber.Ctx) error {
		id, err := httputil.ParamUUID(c, "exportID")
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
		}
		body, export, err := container.Reports.Open(httputil.UserContext(c), id)
		if err != nil {
			return writeReportError(c, err)
		}
		c.Attachment(export.Filename())
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.SendStream(body)
	})
}

func writeReportError(c *fiber.Ctx, err error) error {
	switch {
	case httputil.IsRangeError(err):
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, reportsvc.ErrNotFound):
		return httputil.WriteError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, reportsvc.ErrServiceUnavailable):
		return httputil.WriteError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
}
