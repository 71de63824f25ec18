package api

import (
	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/handlers"
)

func registerMessageRoutes(api *gin.RouterGroup, handler *handlers.MessageHandler, requireAuth gin.HandlerFunc) {
	group := api.Group("/messages")
	{
		// Anonymous callers get a zero count instead of a 401.
		group.GET("/unread-count", handler.UnreadCount)

		group.POST("", requireAuth, handler.Send)
		group.GET("/with/:userID", requireAuth, handler.Conversation)
		group.POST("/with/:userID/read", requireAuth, handler.MarkConversationRead)
	}
}
