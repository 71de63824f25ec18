package api

import (
	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler, requireAuth, requireAdmin gin.HandlerFunc) {
	// The websocket authenticates from the query string, browsers cannot set headers on upgrades.
	api.GET("/notifications/stream", handler.Stream)

	group := api.Group("/notifications", requireAuth)
	{
		group.GET("", handler.List)
		group.GET("/unread-count", handler.UnreadCount)
		group.POST("/read-all", handler.MarkAllRead)

		group.POST("", requireAdmin, handler.Create)
		group.POST("/:id/read", handler.MarkRead)
		group.POST("/:id/unread", handler.MarkUnread)
		group.DELETE("/:id", handler.Delete)
	}
}
