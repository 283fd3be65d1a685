package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hcm-campaign-api/internal/service"
)

// Metrics captures request counters and latency histograms.
func Metrics(metrics *service.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
