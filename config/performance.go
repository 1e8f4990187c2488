package config

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// PerformanceLogger logs each request with its latency. Requests slower than
// threshold are marked SLOW; a zero threshold disables the marker.
func PerformanceLogger(threshold time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		marker := ""
		if threshold > 0 && latency > threshold {
			marker = " SLOW"
		}
		log.Printf("[PERF]%s %s %s | Status: %d | Time: %v", marker, c.Request.Method, route, c.Writer.Status(), latency)
	}
}
