package routes

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"github.com/campusperks/realtime-service/internal/auth"
	"github.com/campusperks/realtime-service/internal/handlers"
	"github.com/campusperks/realtime-service/internal/middleware"
	"github.com/campusperks/realtime-service/internal/ws"
)

func Register(app *fiber.App, h *handlers.NotificationHandler, wsh *ws.Handler, jwtSecret string, limiter *middleware.RateLimiter) {
	v1 := app.Group("/v1")
	v1.Get("/health", h.Health)
	v1.Get("/presence/:user_id", h.Presence)

	v1.Get("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	v1.Get("/ws", fiberws.New(wsh.Handle()))

	api := app.Group("/api/v1/notifications", middleware.JWTAuth(jwtSecret))
	api.Post("/",
		middleware.RequireRole(auth.RoleAdmin, auth.RoleVendor),
		limiter.ByUser(),
		h.Create)
	api.Get("/", h.List)
	api.Get("/unread-count", h.UnreadCount)
	api.Patch("/read-all", h.MarkAllRead)
	api.Patch("/:id/read", h.MarkRead)
	api.Delete("/:id", h.Delete)
}
