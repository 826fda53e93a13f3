package router

import (
	"context"

	"social_match_service/internal/chat/app"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes register chat routes
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, chatHTTP *app.ChatHTTPHandler) {
	r.Get("/chat/history", chatHTTP.History)
	r.Get("/chat/threads", chatHTTP.Threads)
	r.Get("/chat/mark-read", chatHTTP.MarkRead)

	r.Get("/ws/chat", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}
