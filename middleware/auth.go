// middleware/auth.go
package middleware

import (
	"errors"
	"log"
	"strings"

	"clicker-game-backend/services"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware resolves the Authorization bearer token through the
// auth service and attaches the verified user id to the request context.
// A reject here happens before any game-state access — failed auth has no
// side effects. The local player row is created lazily on first contact.
func UserContextMiddleware(authClient *services.AuthServiceClient, gameService *services.GameService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" || token == header {
			log.Printf("❌ [AUTH] Missing bearer token on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		resp, err := authClient.ValidateToken(token)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid or expired token",
				})
			}
			log.Printf("❌ [AUTH] Validation error on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "auth service unavailable",
			})
		}

		if _, err := gameService.EnsurePlayer(resp.UserID, resp.Nickname); err != nil {
			log.Printf("❌ [AUTH] Failed to ensure player %s: %v", resp.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to initialize player",
			})
		}

		// Attach to ctx for handlers
		c.Locals("user_id", resp.UserID)
		c.Locals("nickname", resp.Nickname)

		return c.Next()
	}
}
