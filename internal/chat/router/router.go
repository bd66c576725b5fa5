package router

import (
	"context"

	"pluto_chat_service/internal/chat/app"
	"pluto_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 註冊聊天相關的路由
func RegisterRoutes(r *fiber.App, httpHandler *app.ChatHTTPHandler, wsHandler *app.ChatWebsocketHandler) {
	api := r.Group("/api/v1")

	// 登入不需要 token
	api.Post("/users/login", httpHandler.Login)

	r.Use(middlewares.JWTMiddleware())

	api.Post("/rooms", httpHandler.CreateOrJoinRoom)
	api.Post("/rooms/create", httpHandler.CreateRoom)
	api.Post("/rooms/join", httpHandler.JoinRoom)
	api.Get("/rooms/:roomId", httpHandler.GetRoom)
	api.Get("/rooms/:roomId/messages", httpHandler.GetMessages)
	api.Post("/rooms/:roomId/messages", httpHandler.AppendMessage)
	api.Post("/rooms/:roomId/photos", httpHandler.UploadPhoto)
	api.Get("/users/:username/rooms", httpHandler.GetUserRooms)
	// 舊版路徑，跟 /users/:username/rooms 指到同一個 handler
	api.Get("/rooms/user/:username", httpHandler.GetUserRooms)

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))
}
