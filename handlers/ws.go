// handlers/ws.go
package handlers

import (
	"log"

	"clicker-game-backend/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WSHandler serves the realtime game channel. One connection per user;
// inbound frames are dispatched one at a time through the session manager,
// so per-connection ordering is preserved.
type WSHandler struct {
	Auth     *services.AuthServiceClient
	Game     *services.GameService
	Sessions *services.SessionManager
}

func SetupWebsocketRoutes(app *fiber.App, h *WSHandler) {
	app.Use("/game/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/game/ws/:token", websocket.New(h.serve))
}

// serve runs one connection's lifecycle: authenticate, register, push the
// initial state, then the read loop until disconnect or a fatal error.
func (h *WSHandler) serve(c *websocket.Conn) {
	defer c.Close()

	resp, err := h.Auth.ValidateToken(c.Params("token"))
	if err != nil {
		// Refuse before the session exists. 1008 = policy violation.
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token")
		_ = c.WriteMessage(websocket.CloseMessage, msg)
		return
	}
	userID := resp.UserID

	if _, err := h.Game.EnsurePlayer(userID, resp.Nickname); err != nil {
		log.Printf("[WS] Failed to ensure player %s: %v", userID, err)
		return
	}

	h.Sessions.Register(userID, c)
	defer h.Sessions.Deregister(userID, c)
	log.Printf("[WS] User %s connected", userID)

	// Initial snapshot so the client can render immediately.
	player, err := h.Game.GetState(userID)
	if err != nil {
		log.Printf("[WS] Initial state for user %s failed: %v", userID, err)
		return
	}
	if err := h.Sessions.SendToUser(userID, services.Event{
		Type: services.EventGameState,
		Data: player.GameState(),
	}); err != nil {
		return
	}

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			log.Printf("[WS] User %s disconnected: %v", userID, err)
			return
		}
		if err := h.Sessions.HandleMessage(userID, raw); err != nil {
			// Fail fast: anything unhandled kills this session only.
			log.Printf("[WS] Dropping session for user %s: %v", userID, err)
			return
		}
	}
}
