package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"autodeposit.backend/pkg/logger"
	"autodeposit.backend/pkg/metrics"
)

// LoggerMiddleware logs HTTP requests using the structured logger and
// records them in the request metrics
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		// Label by route template so ids do not explode cardinality.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		logger.LogRequest(c.Request.Context(), c.Request.Method, path, status, latency, c.ClientIP())
	}
}
