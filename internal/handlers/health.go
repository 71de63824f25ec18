package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/database"
	"github.com/farmlink/marketplace/pkg/logger"
	"github.com/farmlink/marketplace/pkg/response"
)

// Health reports readiness. The service is unavailable when the database does not answer a ping.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.Ping(db); err != nil {
			logger.WithModule("health").Warn("database ping failed", zap.Error(err))
			response.Success(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
