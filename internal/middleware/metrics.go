package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/pkg/metrics"
)

// unmatchedRoute labels requests that hit no registered route, so probing random paths cannot grow
// the label set.
const unmatchedRoute = "unmatched"

// Metrics observes latency per route template and counts requests per status class.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()

		metrics.APILatency.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status/100)+"xx").Inc()
	}
}
