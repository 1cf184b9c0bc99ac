package admin

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
	"github.com/ncecere/attendance/backend/internal/rbac"
	auditservice "github.com/ncecere/attendance/backend/internal/services/audit"
)

type activityLogResponse struct {
	ID         string          `json:"id"`
	UserID     *string         `json:"user_id,omitempty"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resource_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func registerAdminActivityRoutes(router fiber.Router, container *app.Container) {
	router.Get("/activity", session.RequirePermission(rbac.PermActivityRead), func(c *fiber.Ctx) error {
		userID, err := httputil.QueryUUID(c, "user_id")
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
		}
		limit, offset := httputil.Pagination(c, 50)

		logs, total, err := container.Audit.List(httputil.UserContext(c), auditservice.Filter{
			UserID:       userID,
			Action:       strings.TrimSpace(c.Query("action")),
			ResourceType: strings.TrimSpace(c.Query("resource")),
			Limit:        limit,
			Offset:       offset,
		})
		if err != nil {
			if errors.Is(err, auditservice.ErrServiceUnavailable) {
				return httputil.WriteError(c, fiber.StatusServiceUnavailable, err.Error())
			}
			return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
		}

		resp := make([]activityLogResponse, 0, len(logs))
		for _, entry := range logs {
			resp = append(resp, toActivityLogResponse(entry))
		}
		return c.JSON(fiber.Map{
			"logs":   resp,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	})
}

func toActivityLogResponse(entry auditservice.LogEntry) activityLogResponse {
	resp := activityLogResponse{
		ID:         entry.ID.String(),
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		CreatedAt:  entry.CreatedAt,
	}
	if entry.UserID != nil {
		id := entry.UserID.String()
		resp.UserID = &id
	}
	if len(entry.Metadata) > 0 && json.Valid(entry.Metadata) {
		resp.Metadata = json.RawMessage(entry.Metadata)
	}
	return resp
}
