package api

import (
	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, requireAuth, requireAdmin gin.HandlerFunc) {
	users := api.Group("/users", requireAuth)
	{
		users.GET("/me", handler.Me)
		users.PATCH("/me", handler.UpdateMe)
		users.GET("", requireAdmin, handler.List)
	}
}
