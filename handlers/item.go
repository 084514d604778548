// handlers/item.go
package handlers

import (
	"clicker-game-backend/middleware"
	"clicker-game-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupItemRoutes(app *fiber.App, itemService *services.ItemService, gameService *services.GameService, authClient *services.AuthServiceClient) {
	// 🔓 Public — the catalog is world-readable
	app.Get("/items", itemService.GetAllItems)
	app.Get("/items/:id", itemService.GetItem)

	// 🔐 Catalog management. Authenticated only; there is no admin role model
	// yet, so any verified user can manage the catalog.
	secured := app.Group("/items", middleware.UserContextMiddleware(authClient, gameService))

	secured.Post("/", itemService.CreateItem)
	secured.Put("/:id", itemService.UpdateItem)
	secured.Delete("/:id", itemService.DeleteItem)
	secured.Post("/:id/image", itemService.UploadItemImage)
}
