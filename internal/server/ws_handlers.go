// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"log"

	"gatekeeper/internal/models"
	"gatekeeper/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler returns a websocket handler that registers connections with the Hub.
// Authentication is handled by route middleware and userID is read from connection locals.
// Admins and checkpoint operators may request the gate activity feed with ?feed=gate.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.ActiveWebSockets.Inc()
		defer observability.ActiveWebSockets.Dec()

		userIDVal := conn.Locals("userID")
		uid, ok := userIDVal.(uint)
		if !ok {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		role, _ := conn.Locals("role").(models.Role)
		gateFeed := conn.Query("feed") == "gate" &&
			(role == models.RoleAdmin || role == models.RoleCheckpoint)

		// Register connection with scaling guardrails
		client, err := s.hub.Register(uid, conn, gateFeed)
		if err != nil {
			log.Printf("WebSocket: Failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		// Start pumps; ReadPump unregisters the client on return
		go client.WritePump()
		client.ReadPump()
	})
}
