package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"proplens/internal/users"
)

// CurrentUserKey is the request-local key the authenticated principal is
// stored under.
const CurrentUserKey = "current_user"

// Authenticate resolves the bearer token to a principal and stores it in
// the request context. Dependencies are injected via the factory function.
func Authenticate(db *gorm.DB, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		user, err := users.Authenticate(db, token)
		if err != nil {
			if errors.Is(err, users.ErrInvalidToken) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid API token",
				})
			}
			logger.Error("Failed to authenticate request", slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "authentication failed",
			})
		}

		c.Locals(CurrentUserKey, user)
		return c.Next()
	}
}

// CurrentUser returns the principal stored by Authenticate, or nil.
func CurrentUser(c *fiber.Ctx) *users.User {
	user, _ := c.Locals(CurrentUserKey).(*users.User)
	return user
}
