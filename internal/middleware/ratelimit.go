package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/logger"
	"github.com/farmlink/marketplace/pkg/response"
)

// RateLimit limits requests per (caller, route) within window. Authenticated callers are keyed by
// user id, anonymous ones by client IP. Store failures let the request through.
func RateLimit(store RateStore, limit int, window time.Duration) gin.HandlerFunc {
	if store == nil {
		store = NewMemoryRateStore()
	}

	return func(c *gin.Context) {
		if limit <= 0 || window <= 0 {
			c.Next()
			return
		}

		caller := UserID(c)
		if caller == "" {
			caller = c.ClientIP()
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		decision, err := store.Allow(c.Request.Context(), caller+"|"+route, limit, window)
		if err != nil {
			logger.WithModule("ratelimit").Warn("rate store failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(math.Ceil(decision.Reset.Seconds()))))

		if !decision.Allowed {
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
