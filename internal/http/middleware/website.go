package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"proplens/internal/websites"
)

// RequireWebsiteAccess enforces the capability check for the websiteId
// route parameter before any analytics query runs. A denial is terminal;
// there is no fallback website.
func RequireWebsiteAccess(db *gorm.DB, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		websiteID := c.Params("websiteId")
		if websiteID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing websiteId",
			})
		}

		user := CurrentUser(c)
		allowed, err := websites.CanViewWebsite(db, user, websiteID)
		if err != nil {
			logger.Error("Failed to check website access",
				slog.String("website_id", websiteID),
				slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "access check failed",
			})
		}
		if !allowed {
			logger.Warn("Website access denied",
				slog.String("website_id", websiteID))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		return c.Next()
	}
}
