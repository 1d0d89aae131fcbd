package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"dental-clinic-server/internal/metrics"
)

// Metrics records request counts and latency by route template, so
// /appointments/:ref is one series regardless of the code requested.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
