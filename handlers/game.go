// handlers/game.go
package handlers

import (
	"errors"
	"strconv"

	"clicker-game-backend/middleware"
	"clicker-game-backend/models"
	"clicker-game-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGameRoutes(app *fiber.App, gameService *services.GameService, authClient *services.AuthServiceClient) {
	// 🔓 Public — leaderboard needs no identity
	app.Get("/game/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		entries, err := gameService.Leaderboard(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
		}
		return c.JSON(entries)
	})

	// 🔐 Secured — identity resolved through the auth service
	secured := app.Group("/game", middleware.UserContextMiddleware(authClient, gameService))

	secured.Get("/state", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		player, err := gameService.GetState(userID)
		if err != nil {
			return gameError(c, err)
		}
		return c.JSON(player.GameState())
	})

	secured.Get("/state/with-items", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		state, err := gameService.GetStateWithItems(userID)
		if err != nil {
			return gameError(c, err)
		}
		return c.JSON(state)
	})

	secured.Post("/click", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		earned, player, err := gameService.ProcessClick(userID)
		if err != nil {
			return gameError(c, err)
		}
		return c.JSON(models.ClickResult{
			PointsEarned:   earned,
			NewTotal:       player.Points,
			LifetimePoints: player.LifetimePoints,
			Clicks:         player.Clicks,
		})
	})

	secured.Post("/buy/:item_id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		result, err := gameService.PurchaseItem(userID, c.Params("item_id"))
		if err != nil {
			return gameError(c, err)
		}
		if !result.Success {
			// Normal game outcome, reported as a client error with the reason.
			return c.Status(fiber.StatusBadRequest).JSON(result)
		}
		return c.JSON(result)
	})
}

// gameError translates economy-engine sentinels to HTTP statuses.
func gameError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	case errors.Is(err, services.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
