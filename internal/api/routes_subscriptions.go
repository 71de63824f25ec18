package api

import (
	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/handlers"
)

func registerSubscriptionRoutes(api *gin.RouterGroup, handler *handlers.SubscriptionHandler, requireAuth, requireAdmin gin.HandlerFunc) {
	group := api.Group("/subscriptions")
	{
		// Status answers 401 itself so the body matches the documented shape.
		group.GET("/status", handler.Status)

		group.POST("", requireAuth, requireAdmin, handler.Grant)
		group.POST("/:id/cancel", requireAuth, handler.Cancel)
	}
}
