package server

import (
	"errors"
	"time"

	"handbook/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireUpgrade lets only WebSocket handshakes through to the socket routes.
func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketHandler serves the chat socket. Connections are anonymous; the
// sender identity travels in each send_message frame.
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.hub.Register(conn)
		if err != nil {
			reason := "server error"
			if errors.Is(err, realtime.ErrTooManyConnections) {
				reason = err.Error()
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
				time.Now().Add(time.Second))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = s.dispatcher.Handle

		go client.WritePump()
		client.ReadPump()
	})
}
