package httputil

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/validation"
)

// WriteError standardizes JSON error responses across the API.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// WriteValidationError reports field errors from validation.Validator as 400.
// Any other error is written as a plain bad request.
func WriteValidationError(c *fiber.Ctx, err error) error {
	var fields validation.Errors
	if errors.As(err, &fields) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": fields,
		})
	}
	return WriteError(c, fiber.StatusBadRequest, err.Error())
}
