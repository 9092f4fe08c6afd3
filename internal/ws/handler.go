package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handler streams hub events to the connection until either side hangs up
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := newClient(hub, conn)
		if !hub.joinHub(client) {
			_ = conn.Close()
			return
		}

		go client.writeLoop()
		client.readLoop()

		// fiber recycles conn once this returns
		<-client.done
	})
}

// UpgradeMiddleware rejects plain HTTP requests to the stream endpoint
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}
