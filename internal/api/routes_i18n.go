package api

import (
	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/handlers"
)

func registerI18nRoutes(api *gin.RouterGroup, handler *handlers.I18nHandler) {
	group := api.Group("/i18n")
	{
		group.GET("/messages", handler.Messages)
		group.POST("/locale", handler.SetLocale)
	}
}
