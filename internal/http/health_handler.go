package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Health returns a liveness handler. check pings the active backend; a
// failing check reports 503 so load balancers stop routing here.
func Health(check func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := check(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
