package admin

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/auth"
	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/httpserver/session"
	"github.com/ncecere/attendance/backend/internal/rbac"
	adminauditsvc "github.com/ncecere/attendance/backend/internal/services/adminaudit"
	adminusersvc "github.com/ncecere/attendance/backend/internal/services/adminuser"
)

type adminUserHandler struct {
	container *app.Container
	users     *adminusersvc.Service
}

type adminUserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	Department  string     `json:"department"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type createUserRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name" validate:"max=200"`
	Role       string `json:"role" validate:"omitempty,role"`
	Department string `json:"department" validate:"max=200"`
	Password   string `json:"password" validate:"omitempty,min=8"`
}

type updateUserRequest struct {
	Name       *string `json:"name" validate:"omitempty,notblank,max=200"`
	Role       *string `json:"role" validate:"omitempty,role"`
	Department *string `json:"department" validate:"omitempty,max=200"`
	Status     *string `json:"status" validate:"omitempty,oneof=active disabled"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

func registerAdminUserRoutes(router fiber.Router, container *app.Container) {
	handler := &adminUserHandler{container: container, users: container.Users}
	group := router.Group("/users", session.RequirePermission(rbac.PermUsersManage))
	group.Get("/", handler.list)
	group.Post("/", handler.create)
	group.Get("/:userID", handler.get)
	group.Patch("/:userID", handler.update)
	group.Post("/:userID/password", handler.resetPassword)
}

func (h *adminUserHandler) list(c *fiber.Ctx) error {
	limit, offset := httputil.Pagination(c, 50)
	users, total, err := h.users.List(httputil.UserContext(c), adminusersvc.ListParams{
		Limit:  limit,
		Offset: offset,
		Role:   strings.TrimSpace(c.Query("role")),
		Status: strings.TrimSpace(c.Query("status")),
		Query:  strings.TrimSpace(c.Query("q")),
	})
	if err != nil {
		return writeUserError(c, err)
	}
	resp := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toAdminUserResponse(u))
	}
	return c.JSON(fiber.Map{
		"users":  resp,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *adminUserHandler) create(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.container.Validator.Struct(req); err != nil {
		return httputil.WriteValidationError(c, err)
	}

	user, err := h.users.Create(httputil.UserContext(c), adminusersvc.CreateParams{
		Email:      req.Email,
		Name:       req.Name,
		Role:       req.Role,
		Department: req.Department,
		Password:   req.Password,
	})
	if err != nil {
		return writeUserError(c, err)
	}
	recordActivity(c, h.container, adminauditsvc.ActionUserCreate, "user", user.ID.String(), fiber.Map{
		"email": user.Email,
		"role":  user.Role,
	})
	return c.Status(fiber.StatusCreated).JSON(toAdminUserResponse(user))
}

func (h *adminUserHandler) get(c *fiber.Ctx) error {
	id, err := httputil.ParamUUID(c, "userID")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	user, err := h.users.Get(httputil.UserContext(c), id)
	if err != nil {
		return writeUserError(c, err)
	}
	return c.JSON(toAdminUserResponse(user))
}

func (h *adminUserHandler) update(c *fiber.Ctx) error {
	id, err := httputil.ParamUUID(c, "userID")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.container.Validator.Struct(req); err != nil {
		return httputil.WriteValidationError(c, err)
	}
	if identity, ok := session.Identity(c); ok && identity.UserID == id {
		if req.Status != nil && !strings.EqualFold(*req.Status, "active") {
			return httputil.WriteError(c, fiber.StatusBadRequest, "cannot disable your own account")
		}
		if req.Role != nil && !strings.EqualFold(*req.Role, string(identity.Role)) {
			return httputil.WriteError(c, fiber.StatusBadRequest, "cannot change your own role")
		}
	}

	user, err := h.users.Update(httputil.UserContext(c), id, adminusersvc.UpdateParams{
		Name:       req.Name,
		Role:       req.Role,
		Department: req.Department,
		Status:     req.Status,
	})
	if err != nil {
		return writeUserError(c, err)
	}
	recordActivity(c, h.container, adminauditsvc.ActionUserUpdate, "user", user.ID.String(), req)
	return c.JSON(toAdminUserResponse(user))
}

func (h *adminUserHandler) resetPassword(c *fiber.Ctx) error {
	id, err := httputil.ParamUUID(c, "userID")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.container.Validator.Struct(req); err != nil {
		return httputil.WriteValidationError(c, err)
	}
	if err := h.users.ResetPassword(httputil.UserContext(c), id, req.Password); err != nil {
		return writeUserError(c, err)
	}
	recordActivity(c, h.container, adminauditsvc.ActionUserPasswordReset, "user", id.String(), nil)
	return c.SendStatus(fiber.StatusNoContent)
}

func toAdminUserResponse(u adminusersvc.User) adminUserResponse {
	return adminUserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		Name:        u.Name,
		Role:        string(u.Role),
		Status:      string(u.Status),
		Department:  u.Department,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func writeUserError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, adminusersvc.ErrNotFound):
		return httputil.WriteError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, adminusersvc.ErrEmailTaken):
		return httputil.WriteError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, adminusersvc.ErrEmailRequired),
		errors.Is(err, adminusersvc.ErrInvalidRole),
		errors.Is(err, adminusersvc.ErrInvalidStatus),
		errors.Is(err, auth.ErrWeakPassword):
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrLocalDisabled):
		return httputil.WriteError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, adminusersvc.ErrServiceUnavailable):
		return httputil.WriteError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
}
