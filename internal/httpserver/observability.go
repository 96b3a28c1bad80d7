package httpserver

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitewatch/auditlog/internal/obs"
)

// Only the API and ingest surfaces feed the counters; liveness probes and
// docs assets would drown the sensor traffic they exist to describe.
func observabilityMiddleware(stats *obs.Stats) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/healthz" || path == "/openapi.json" || strings.HasPrefix(path, "/docs/") {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		stats.ObserveHTTP(c.Writer.Status(), time.Since(start))
	}
}
