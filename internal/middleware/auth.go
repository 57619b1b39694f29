package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Eterla/2025Fall-SE-Project-group2/pkg/utils"
)

func authError(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"ok": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := strings.TrimSpace(c.Get("Authorization"))
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// AuthRequired authenticates the bearer token before handler dispatch and
// stores the resolved user id in request locals.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return authError(c, "NO_TOKEN", "Missing authorization token")
		}

		claims, err := utils.ValidateToken(token, secret)
		if err != nil {
			if utils.IsExpired(err) {
				return authError(c, "TOKEN_EXPIRED", "Token has expired")
			}
			return authError(c, "INVALID_TOKEN", "Invalid token")
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}

// AuthOptional resolves the identity when a valid token is present but never
// rejects the request. Public endpoints use it to personalize responses.
func AuthOptional(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if claims, err := utils.ValidateToken(token, secret); err == nil {
				c.Locals("user_id", claims.UserID)
			}
		}
		return c.Next()
	}
}
