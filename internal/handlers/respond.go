package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Eterla/2025Fall-SE-Project-group2/internal/applog"
)

// Stable machine-readable error codes. Every failure carries one of these
// plus a human-readable message.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidOperation   = "INVALID_OPERATION"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeItemNotFound       = "ITEM_NOT_FOUND"
	CodeAlreadyFavorited   = "ALREADY_FAVORITED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeNoToken            = "NO_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeServerError        = "SERVER_ERROR"
)

func respondOK(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"ok":   true,
		"data": data,
	})
}

func respondError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"ok": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// respondServerError logs the underlying cause and returns a generic
// SERVER_ERROR so internals never leak to the caller.
func respondServerError(c *fiber.Ctx, action string, err error) error {
	applog.Error(c, action, err, nil)
	return respondError(c, fiber.StatusInternalServerError, CodeServerError, "Internal server error")
}

// currentUserID reads the user id the auth middleware stored in locals.
func currentUserID(c *fiber.Ctx) (int64, error) {
	value, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, fiber.ErrUnauthorized
	}
	return strconv.ParseInt(value, 10, 64)
}
