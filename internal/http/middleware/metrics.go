package middleware

import (
	"time"

	"renolead_backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// RequestMetrics times every request and records it against its route pattern.
// Unmatched routes are grouped under "unmatched" to bound label cardinality.
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
